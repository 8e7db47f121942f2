package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	opts, err := Load([]string{"-s", "secret", "-c", filepath.Join(t.TempDir(), "missing.json")})
	require.NoError(t, err)

	assert.Equal(t, "localhost:8080", opts.Addr)
	assert.Equal(t, "HS256", opts.Algorithm)
	assert.Equal(t, 15*time.Minute, opts.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, opts.RefreshTokenTTL)
	assert.Equal(t, 7*24*time.Hour, opts.EmailTokenTTL)
	assert.False(t, opts.MailEnabled())
	assert.False(t, opts.AvatarsEnabled())
	assert.False(t, opts.TLSEnabled())
}

func TestLoad_Precedence(t *testing.T) {
	path := writeConfig(t, `{
		"server_address": "0.0.0.0:9000",
		"database_dsn": "postgres://file",
		"access_token_ttl": "5m",
		"s3_bucket": "avatars",
		"bcrypt_cost": 12
	}`)
	t.Setenv("DATABASE_DSN", "postgres://env")
	t.Setenv("REFRESH_TOKEN_TTL", "48h")

	opts, err := Load([]string{"-a", "127.0.0.1:1", "-d", "postgres://flag", "-c", path, "-s", "secret"})
	require.NoError(t, err)

	// The file overrides flags, the environment overrides both.
	assert.Equal(t, "0.0.0.0:9000", opts.Addr)
	assert.Equal(t, "postgres://env", opts.DatabaseDSN)
	assert.Equal(t, 5*time.Minute, opts.AccessTokenTTL)
	assert.Equal(t, 48*time.Hour, opts.RefreshTokenTTL)
	assert.Equal(t, 12, opts.BcryptCost)
	assert.True(t, opts.AvatarsEnabled())
}

func TestLoad_ConfigPathFromEnv(t *testing.T) {
	path := writeConfig(t, `{"secret_key": "from-file"}`)
	t.Setenv("CONFIG", path)

	opts, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "from-file", opts.SecretKey)
	assert.Equal(t, path, opts.Config)
}

func TestLoad_Errors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.json")

	tests := []struct {
		name string
		args []string
		env  map[string]string
		file string
	}{
		{name: "no secret", args: []string{"-c", missing}},
		{name: "bad algorithm", args: []string{"-s", "x", "-c", missing}, env: map[string]string{"ALGORITHM": "RS256"}},
		{name: "bad env duration", args: []string{"-s", "x", "-c", missing}, env: map[string]string{"ACCESS_TOKEN_TTL": "soon"}},
		{name: "non-positive ttl", args: []string{"-s", "x", "-c", missing}, env: map[string]string{"EMAIL_TOKEN_TTL": "0s"}},
		{name: "cert without key", args: []string{"-s", "x", "-c", missing}, env: map[string]string{"TLS_CERT_FILE": "server.crt"}},
		{name: "unknown flag", args: []string{"-z"}},
		{name: "malformed file", args: []string{"-s", "x"}, file: `{"server_address":`},
		{name: "bad file duration", args: []string{"-s", "x"}, file: `{"cleanup_interval":"daily"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			args := tt.args
			if tt.file != "" {
				args = append(args, "-c", writeConfig(t, tt.file))
			}
			_, err := Load(args)
			assert.Error(t, err)
		})
	}
}
