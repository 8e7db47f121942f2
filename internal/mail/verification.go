package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

const (
	verificationSubject = "Confirm your email"
	verificationTag     = "email-verification"
)

var verificationTemplate = template.Must(template.New("verification").Parse(`<!DOCTYPE html>
<html>
<body>
<p>Hi {{.Email}},</p>
<p>Thanks for signing up. Please confirm your email address by following the link below.</p>
<p><a href="{{.Link}}">Confirm email</a></p>
<p>If you did not create an account, you can ignore this message.</p>
</body>
</html>
`))

// VerificationLink returns the confirmation URL for token under baseURL.
func VerificationLink(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/confirm/" + token
}

// VerificationMessage renders the address verification email.
func VerificationMessage(baseURL, email, token string) (Message, error) {
	var body bytes.Buffer
	err := verificationTemplate.Execute(&body, struct {
		Email string
		Link  string
	}{
		Email: email,
		Link:  VerificationLink(baseURL, token),
	})
	if err != nil {
		return Message{}, fmt.Errorf("render verification mail: %w", err)
	}

	return Message{
		To:       email,
		Subject:  verificationSubject,
		HTMLBody: body.String(),
		Tag:      verificationTag,
	}, nil
}
