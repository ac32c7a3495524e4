package auth

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/stackfinderz-backend/internal/users"
	"github.com/angelmondragon/stackfinderz-backend/pkg/config"
	"github.com/angelmondragon/stackfinderz-backend/pkg/db"
	"github.com/angelmondragon/stackfinderz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stackfinderz-backend/pkg/errors"
	"github.com/angelmondragon/stackfinderz-backend/pkg/security"
)

// AdminAccount describes the operator account created by the seed command.
type AdminAccount struct {
	Username string
	Email    string
	Password string
}

// AdminBootstrapper creates the admin account or promotes an existing one.
type AdminBootstrapper interface {
	EnsureAdmin(ctx context.Context, account AdminAccount) (*users.UserDTO, bool, error)
}

// AdminBootstrapParams names the dependencies for the admin bootstrap flow.
type AdminBootstrapParams struct {
	DB             *db.Client
	PasswordConfig config.PasswordConfig
}

type adminBootstrapper struct {
	db          *db.Client
	passwordCfg config.PasswordConfig
}

func NewAdminBootstrapper(params AdminBootstrapParams) (AdminBootstrapper, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	return &adminBootstrapper{
		db:          params.DB,
		passwordCfg: params.PasswordConfig,
	}, nil
}

// EnsureAdmin is idempotent. It reports true when a new account was inserted.
// An existing account keeps its password and only gains the admin role.
func (s *adminBootstrapper) EnsureAdmin(ctx context.Context, account AdminAccount) (*users.UserDTO, bool, error) {
	email := strings.ToLower(strings.TrimSpace(account.Email))
	username := strings.TrimSpace(account.Username)
	if err := validateRegistration(username, email, account.Password); err != nil {
		return nil, false, err
	}

	var (
		out     *users.UserDTO
		created bool
	)
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := users.NewRepository(tx)

		existing, err := userRepo.FindByEmail(ctx, email)
		switch {
		case err == nil:
			if existing.Role != enums.UserRoleAdmin {
				if err := userRepo.UpdateRole(ctx, existing.ID, enums.UserRoleAdmin); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "promote admin")
				}
				existing.Role = enums.UserRoleAdmin
			}
			out = users.FromModel(existing)
			return nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check admin email")
		}

		passwordHash, err := security.HashPassword(account.Password, s.passwordCfg)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
		}
		user, err := userRepo.Create(ctx, users.CreateUserDTO{
			Username:     username,
			Email:        email,
			PasswordHash: passwordHash,
			Role:         enums.UserRoleAdmin,
		})
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, userExistsMessage)
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create admin")
		}
		out = users.FromModel(user)
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, created, nil
}
