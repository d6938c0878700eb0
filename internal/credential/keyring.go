// Package credential stores the IMAP password in the OS keyring.
package credential

import (
	"fmt"
	"os"
	"strings"

	"github.com/99designs/keyring"
)

const (
	serviceName = "mailmigrate"

	// PasswordEnv overrides the keyring when set.
	PasswordEnv = "MAILMIGRATE_IMAP_PASSWORD"
)

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/mailmigrate/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("mailmigrate-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// IMAPPasswordKey is the keyring key holding the password for username.
func IMAPPasswordKey(username string) string {
	return "imap-" + strings.ToLower(strings.TrimSpace(username))
}

// IMAPPassword returns the IMAP password for username, preferring the
// environment over the keyring.
func IMAPPassword(username string) (string, error) {
	if pw, ok := os.LookupEnv(PasswordEnv); ok && pw != "" {
		return pw, nil
	}
	if strings.TrimSpace(username) == "" {
		return "", fmt.Errorf("no IMAP username configured and %s is not set", PasswordEnv)
	}
	return Get(IMAPPasswordKey(username))
}

// SetIMAPPassword stores the IMAP password for username.
func SetIMAPPassword(username, password string) error {
	return Set(IMAPPasswordKey(username), password)
}

// Get retrieves a credential value by key from the system keyring.
func Get(key string) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key in the system keyring.
func Set(key string, value string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:  key,
		Data: []byte(value),
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}
