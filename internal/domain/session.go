package domain

import (
	"strings"
	"time"
)

// Session is an authenticated context obtained via login. ExpiresAt is
// informational only; the remote server decides when a token stops working.
type Session struct {
	Token     string
	AccountID AccountID
	ExpiresAt time.Time
}

func (s Session) Valid() bool {
	return strings.TrimSpace(s.Token) != ""
}

// ShortID returns the first eight characters of the account id for console
// lines.
func (s Session) ShortID() string {
	id := string(s.AccountID)
	if len(id) <= 8 {
		return id
	}

	return id[:8] + "..."
}

// TokenPreview returns a prefix of the bearer token that is safe to print.
func (s Session) TokenPreview(n int) string {
	if n <= 0 || len(s.Token) <= n {
		return s.Token
	}

	return s.Token[:n] + "..."
}
