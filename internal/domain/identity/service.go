// Package identity provides the placeholder login and signup flows. Passwords
// are neither hashed nor checked and no session is issued.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hulubedeje/hms/internal/domain/catalog"
	"github.com/hulubedeje/hms/internal/platform/docstore"
	"github.com/hulubedeje/hms/internal/platform/schema"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateEmail     = errors.New("email already registered")
)

// Gateway is the part of *docstore.Gateway the service needs.
type Gateway interface {
	Insert(ctx context.Context, kind string, doc docstore.Document) (string, error)
	List(ctx context.Context, kind string, filter docstore.Filter, limit int) ([]docstore.Document, error)
}

type Service struct {
	registry *schema.Registry
	store    Gateway
	logger   zerolog.Logger
}

func NewService(registry *schema.Registry, store Gateway, logger zerolog.Logger) *Service {
	return &Service{registry: registry, store: store, logger: logger}
}

// Login looks the user up by email. A missing user and an unreachable store
// both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, payload map[string]any) (*LoginResult, error) {
	req, err := loginRequest.Validate(payload)
	if err != nil {
		return nil, err
	}
	email := str(req, "email")

	users, err := s.store.List(ctx, catalog.User, docstore.Filter{"email": email}, 1)
	switch {
	case errors.Is(err, docstore.ErrStoreUnavailable):
		s.logger.Warn().Err(err).Msg("login with store unavailable")
		return nil, ErrInvalidCredentials
	case err != nil:
		return nil, fmt.Errorf("find user: %w", err)
	case len(users) == 0:
		return nil, ErrInvalidCredentials
	}

	u := users[0]
	return &LoginResult{
		Message: "Logged in",
		Role:    str(u, "role"),
		User: UserSummary{
			Email:    str(u, "email"),
			FullName: str(u, "full_name"),
		},
	}, nil
}

// Signup stores a new active, unverified user. The duplicate check and the
// insert are separate store calls, so two concurrent signups for the same
// email can both succeed.
func (s *Service) Signup(ctx context.Context, payload map[string]any) (*SignupResult, error) {
	req, err := signupRequest.Validate(payload)
	if err != nil {
		return nil, err
	}

	user, err := s.registry.Validate(catalog.User, map[string]any{
		"email":         req["email"],
		"password_hash": req["password"],
		"full_name":     req["full_name"],
		"role":          req["role"],
		"is_active":     true,
		"verified":      false,
	})
	if err != nil {
		return nil, err
	}

	existing, err := s.store.List(ctx, catalog.User, docstore.Filter{"email": user["email"]}, 1)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if len(existing) > 0 {
		return nil, ErrDuplicateEmail
	}

	id, err := s.store.Insert(ctx, catalog.User, docstore.Document(user))
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info().Str("user_id", id).Str("role", str(user, "role")).Msg("user signed up")
	return &SignupResult{Message: "Signup successful", UserID: id}, nil
}
