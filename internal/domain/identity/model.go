package identity

import (
	"github.com/hulubedeje/hms/internal/platform/schema"
)

var loginRequest = schema.New("LoginRequest",
	schema.Mail("email").Req(),
	schema.Str("password").Req(),
)

// Role is checked against the User schema when the account is built, so the
// request only requires it to be a string.
var signupRequest = schema.New("SignupRequest",
	schema.Mail("email").Req(),
	schema.Str("password").Req(),
	schema.Str("full_name").Req(),
	schema.Str("role").Req(),
)

// UserSummary is the public part of a user record.
type UserSummary struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// LoginResult is returned for a successful login.
type LoginResult struct {
	Message string      `json:"message"`
	Role    string      `json:"role"`
	User    UserSummary `json:"user"`
}

// SignupResult is returned once an account has been stored.
type SignupResult struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}

func str(rec map[string]any, key string) string {
	s, _ := rec[key].(string)
	return s
}
