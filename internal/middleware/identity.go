package middleware

// identity.go holds helpers shared across middleware and handlers for
// reading the authenticated subject that JWTAuth stores on the context.

import (
	"fmt"

	"github.com/labstack/echo/v4"
)

// Context keys set by JWTAuth.
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

// subject normalises a "sub" claim.  Tokens issued by the account service
// carry numeric subjects, other issuers use strings.
func subject(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%.0f", t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

// UserID returns the authenticated subject, or "anon" when the request
// carries no token.
func UserID(c echo.Context) string {
	if s, ok := c.Get(ContextUserID).(string); ok && s != "" {
		return s
	}
	return "anon"
}
