package auth

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/angelmondragon/stackfinderz-backend/internal/users"
	"github.com/angelmondragon/stackfinderz-backend/pkg/db"
	"github.com/angelmondragon/stackfinderz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stackfinderz-backend/pkg/errors"
	"github.com/angelmondragon/stackfinderz-backend/pkg/security"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
	MinPasswordLength = 6

	userExistsMessage = "User already exists"
)

var fieldValidator = validator.New()

// Register creates a regular account and signs it in.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := validateRegistration(username, email, req.Password); err != nil {
		return nil, err
	}

	exists, err := s.users.ExistsByEmailOrUsername(ctx, email, username)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check existing user")
	}
	if exists {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, userExistsMessage)
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user, err := s.users.Create(ctx, users.CreateUserDTO{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         enums.UserRoleUser,
	})
	if err != nil {
		// concurrent sign-up with the same identifiers
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, userExistsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}
	return s.issue(ctx, user, s.now())
}

func validateRegistration(username, email, password string) error {
	violations := map[string]string{}
	if n := utf8.RuneCountInString(username); n < MinUsernameLength || n > MaxUsernameLength {
		violations["username"] = "must be between 3 and 30 characters"
	}
	if err := fieldValidator.Var(email, "required,email"); err != nil {
		violations["email"] = "must be a valid email"
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		violations["password"] = "must be at least 6 characters"
	}
	if len(violations) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(violations)
}
