package credential

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIMAPPasswordKey(t *testing.T) {
	assert.Equal(t, "imap-me@proton.me", IMAPPasswordKey(" Me@Proton.me "))
}

func TestIMAPPassword_FromEnv(t *testing.T) {
	t.Setenv(PasswordEnv, "s3cret")

	pw, err := IMAPPassword("me@proton.me")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", pw)
}

func TestIMAPPassword_NoUsername(t *testing.T) {
	t.Setenv(PasswordEnv, "")

	_, err := IMAPPassword("")
	assert.ErrorContains(t, err, PasswordEnv)
}
