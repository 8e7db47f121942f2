package client

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/atinyakov/GophContacts/internal/models"
)

// Prompter reads answers line by line from an interactive input.
type Prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

// NewPrompter creates a prompter reading from in and printing questions to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewScanner(in), out: out}
}

// Ask prints question and returns the trimmed answer, or def when the answer
// is empty. ok is false once the input is exhausted.
func (p *Prompter) Ask(question, def string) (answer string, ok bool) {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", question, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", question)
	}
	if !p.in.Scan() {
		return def, false
	}
	answer = strings.TrimSpace(p.in.Text())
	if answer == "" {
		return def, true
	}
	return answer, true
}

// Line reads the next raw line, as the shell does for commands.
func (p *Prompter) Line(prompt string) (string, bool) {
	fmt.Fprint(p.out, prompt)
	if !p.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(p.in.Text()), true
}

// PromptForContact asks for every contact field. Existing values of current,
// if given, are offered as defaults so that edit only needs the changes.
func (p *Prompter) PromptForContact(current *models.Contact) (ContactPayload, bool) {
	var def ContactPayload
	if current != nil {
		def = ContactPayload{
			Name:     current.Name,
			Surname:  current.Surname,
			Email:    current.Email,
			Birthday: current.Birthday.String(),
			Notes:    current.Notes,
		}
	}

	fields := []struct {
		question string
		dst      *string
		def      string
	}{
		{"Name", &def.Name, def.Name},
		{"Surname", &def.Surname, def.Surname},
		{"Email", &def.Email, def.Email},
		{"Birthday (YYYY-MM-DD)", &def.Birthday, def.Birthday},
		{"Notes", &def.Notes, def.Notes},
	}
	for _, f := range fields {
		answer, ok := p.Ask(f.question, f.def)
		if !ok {
			return ContactPayload{}, false
		}
		*f.dst = answer
	}
	return def, true
}

// PrintContacts writes one line per contact.
func PrintContacts(w io.Writer, contacts []models.Contact) {
	if len(contacts) == 0 {
		fmt.Fprintln(w, "No contacts")
		return
	}
	for _, c := range contacts {
		PrintContact(w, c)
	}
}

// PrintContact writes a single contact line.
func PrintContact(w io.Writer, c models.Contact) {
	name := strings.TrimSpace(c.Name + " " + c.Surname)
	fmt.Fprintf(w, "#%d %s <%s> born %s", c.ID, name, c.Email, c.Birthday)
	if c.Notes != "" {
		fmt.Fprintf(w, " (%s)", c.Notes)
	}
	fmt.Fprintln(w)
}
