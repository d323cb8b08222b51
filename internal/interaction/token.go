package interaction

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrMalformedToken indicates a callback carried an action identifier that is
// not a valid interaction token.
var ErrMalformedToken = errors.New("malformed interaction token")

// Token is the opaque correlation identifier embedded in an outbound UI
// action and echoed back by Slack on callback. Tokens are UUIDv7 so they are
// globally unique and time-ordered.
type Token struct {
	id uuid.UUID
}

// NewToken mints a fresh token.
func NewToken() Token {
	return Token{id: uuid.Must(uuid.NewV7())}
}

// ParseToken parses the external string form of a token.
func ParseToken(s string) (Token, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return Token{}, fmt.Errorf("%w: %q", ErrMalformedToken, s)
	}
	return Token{id: id}, nil
}

// String returns the external form, suitable for use as a Slack action_id.
func (t Token) String() string {
	return t.id.String()
}

// IsZero reports whether t is the zero token.
func (t Token) IsZero() bool {
	return t.id == uuid.UUID{}
}
