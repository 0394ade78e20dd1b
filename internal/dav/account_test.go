package dav

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveIdentity_BareHostDefaultsToHTTPS(t *testing.T) {
	id, err := resolveIdentity(BasicAccount{ServerURL: "dav.example.com", User: "alice"}, "secret")
	require.NoError(t, err)
	assert.Equal(t, "https://dav.example.com", id.BaseURL.String())
	assert.Equal(t, "alice", id.Username)
}

func TestResolveIdentity_PortAndBasePath(t *testing.T) {
	acct := BasicAccount{
		ServerURL:  "http://dav.example.com",
		User:       "alice",
		ServerPort: 8080,
		RootPath:   "/remote.php/webdav/",
	}

	id, err := resolveIdentity(acct, "secret")
	require.NoError(t, err)
	assert.Equal(t, "http://dav.example.com:8080/remote.php/webdav", id.BaseURL.String())
}

func TestResolveIdentity_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		account  BasicAccount
		password string
	}{
		{"empty host", BasicAccount{User: "alice"}, "pw"},
		{"whitespace host", BasicAccount{ServerURL: "   ", User: "alice"}, "pw"},
		{"unsupported scheme", BasicAccount{ServerURL: "ftp://example.com", User: "alice"}, "pw"},
		{"scheme only", BasicAccount{ServerURL: "https://", User: "alice"}, "pw"},
		{"empty username", BasicAccount{ServerURL: "example.com"}, "pw"},
		{"colon in username", BasicAccount{ServerURL: "example.com", User: "a:b"}, "pw"},
		{"non-utf8 username", BasicAccount{ServerURL: "example.com", User: "a\xff"}, "pw"},
		{"non-utf8 password", BasicAccount{ServerURL: "example.com", User: "alice"}, "p\xffw"},
		{"control char in password", BasicAccount{ServerURL: "example.com", User: "alice"}, "p\nw"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := resolveIdentity(tt.account, tt.password)
			assert.Nil(t, id)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestResolveIdentity_Deterministic(t *testing.T) {
	acct := BasicAccount{ServerURL: "dav.example.com", User: "alice", RootPath: "files"}

	a, err := resolveIdentity(acct, "pw")
	require.NoError(t, err)

	b, err := resolveIdentity(acct, "pw")
	require.NoError(t, err)

	assert.Equal(t, a.key(), b.key())
}

// The same username in decomposed and precomposed Unicode must resolve
// to one identity, so both reuse one session.
func TestResolveIdentity_NormalizesUsername(t *testing.T) {
	composed, err := resolveIdentity(BasicAccount{ServerURL: "example.com", User: "hélene"}, "pw")
	require.NoError(t, err)

	decomposed, err := resolveIdentity(BasicAccount{ServerURL: "example.com", User: "hélene"}, "pw")
	require.NoError(t, err)

	assert.Equal(t, composed.key(), decomposed.key())
}
