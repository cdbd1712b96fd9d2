package user

import (
	"context"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/invigilo/invigilo/core"
	"github.com/invigilo/invigilo/core/entity"
)

var (
	ErrNotFound       = entity.ErrNotFound
	ErrEmailExists    = errors.New("a user with this email already exists")
	ErrUsernameExists = errors.New("a user with this username already exists")
)

// Repository is the persistence contract: the user's entity DAO plus
// domain-specific lookups.
type Repository interface {
	entity.ActivatableDAO[User, Mod]

	GetByUsernameOrEmail(ctx context.Context, usernameOrEmail string) (User, error)
	CheckUsernameUniqueness(ctx context.Context, username, email string, excluded ...User) error
	SetLastLogin(ctx context.Context, usr User) (User, error)
	SetPassword(ctx context.Context, modelID string, hash []byte) (User, error)
	Delete(ctx context.Context, modelID string) error
}

type Service struct {
	repo    Repository
	mailSvc core.EmailService
	logger  core.Logger
}

func NewService(repo Repository, mailSvc core.EmailService, logger core.Logger) *Service {
	return &Service{repo: repo, mailSvc: mailSvc, logger: logger}
}

func (svc *Service) Repo() Repository { return svc.repo }

func (svc *Service) checkUniqueness(uname, email string, orig *User) error {
	var excluded []User
	if orig != nil {
		excluded = append(excluded, *orig)
	}
	if err := svc.repo.CheckUsernameUniqueness(context.Background(), uname, email, excluded...); err != nil {
		var field string
		switch err {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *Service) GetByModelID(ctx context.Context, modelID string) (User, error) {
	return svc.repo.ByModelID(ctx, modelID)
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetByUsernameOrEmail(ctx, core.CleanString(uname, true /* lower */))
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	return svc.repo.SetLastLogin(ctx, usr)
}

// ChangePassword verifies the old password and stores the new one.
func (svc *Service) ChangePassword(ctx context.Context, usr User, pc PasswordChange) (User, error) {
	if err := usr.CheckPassword(pc.OldPassword); err != nil {
		return User{}, core.NewValidationError(nil,
			core.FieldError{Field: "old_password", Error: "old password is wrong"})
	}
	if err := usr.SetPassword(pc.NewPassword); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.SetPassword(ctx, usr.UUID, usr.PasswordHash)
}

// RequestPasswordReset emails a signed reset link to the account owner.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByUsernameOrEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.Active {
		return ErrNotFound
	}

	token, err := MakeToken(usr)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Password reset",
		TemplateName: "password_reset",
		TemplateData: struct {
			Username string
			UID      string
			Token    string
		}{usr.Username, EncodeUID(usr), token},
	})
	return nil
}

// ResetPassword validates the reset token and stores the new password.
func (svc *Service) ResetPassword(ctx context.Context, rp ResetPassword) (User, error) {
	uuid, err := decodeUID(rp.UID)
	if err != nil {
		return User{}, core.NewValidationError(errInvalidToken)
	}
	usr, err := svc.repo.ByModelID(ctx, uuid)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, core.NewValidationError(errInvalidToken)
		}
		return User{}, err
	}
	if err = verifyToken(usr, rp.Token); err != nil {
		return User{}, core.NewValidationError(err)
	}
	if err = usr.SetPassword(rp.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.SetPassword(ctx, usr.UUID, usr.PasswordHash)
}
