package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/nhle/mailmigrate/internal/model"
)

// AuthError indicates that the mailbox rejected the configured
// credentials.
type AuthError struct {
	Username string
	Message  string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.Username, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// FetchSource supplies raw messages for a scan.
type FetchSource interface {
	// Fetch returns at most limit of the most recent messages, oldest
	// first. On failure it returns whatever it collected before the
	// failure together with the error; callers treat the error as a
	// soft outcome. A deadline on ctx ends the fetch early the same way.
	Fetch(ctx context.Context, limit int) ([]model.RawMessage, error)
}

// FetchFunc adapts a function to FetchSource.
type FetchFunc func(ctx context.Context, limit int) ([]model.RawMessage, error)

// Fetch calls f.
func (f FetchFunc) Fetch(ctx context.Context, limit int) ([]model.RawMessage, error) {
	return f(ctx, limit)
}

// Static is a FetchSource over a fixed slice, honoring limit by keeping
// the most recent (last) messages.
type Static []model.RawMessage

// Fetch returns the last limit messages of s.
func (s Static) Fetch(_ context.Context, limit int) ([]model.RawMessage, error) {
	if limit > 0 && len(s) > limit {
		return append([]model.RawMessage(nil), s[len(s)-limit:]...), nil
	}
	return append([]model.RawMessage(nil), s...), nil
}
