package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/access"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("user not found")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrInvalidCredentials = core.NewValidationError(errors.New("invalid credentials"))
	ErrSelfDelete         = core.NewPermissionError("you cannot delete your own account")
	ErrRoleTooHigh        = core.NewValidationError(nil, core.FieldError{Field: "role", Error: "not enough rights to set this role"})
	ErrInvalidResetToken  = core.NewValidationError(nil, core.FieldError{Field: "token", Error: "invalid value"})
	ErrInvalidResetUID    = core.NewValidationError(nil, core.FieldError{Field: "uid", Error: "invalid value"})
)

type Repository interface {
	CheckEmailUniqueness(ctx context.Context, email string, excludedIDs ...string) error
	CreateUser(ctx context.Context, usr User) (User, error)
	GetUserByID(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	// QueryUsers applies AND operation on available QueryFilter fields.
	QueryUsers(ctx context.Context, filter QueryFilter) ([]User, error)
	UpdateUser(ctx context.Context, usr User) (User, error)
	DeleteUser(ctx context.Context, id string) error
}

type Service struct {
	repo     Repository
	validate *validator.Validate
	mailSvc  core.EmailService
	conf     *core.Config
	tokens   tokenGenerator
}

func NewService(repo Repository, validate *validator.Validate, mailSvc core.EmailService, conf *core.Config) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(validate, "validate"),
		vala.IsNotNil(mailSvc, "mailSvc"),
		vala.IsNotNil(conf, "conf"),
	).CheckAndPanic()
	return &Service{
		repo:     repo,
		validate: validate,
		mailSvc:  mailSvc,
		conf:     conf,
		tokens:   tokenGenerator{secretKey: conf.SecretKey, timeout: conf.PasswordResetTimeoutDelta},
	}
}

func (svc *Service) checkUniqueness(ctx context.Context, email string, excludedIDs ...string) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, excludedIDs...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

// Create adds an active user. p cannot grant a role above its own; the system principal bypasses this.
func (svc *Service) Create(ctx context.Context, p access.Principal, nu NewUser) (User, error) {
	if err := access.Authorize(p, access.ActionManageUsers); err != nil {
		return User{}, err
	}
	nu.Clean()
	if err := svc.validate.Struct(nu); err != nil {
		return User{}, err
	}
	if access.RolePriority(nu.Role) > access.RolePriority(p.Role) {
		return User{}, ErrRoleTooHigh
	}
	if err := svc.checkUniqueness(ctx, nu.Email); err != nil {
		return User{}, err
	}

	now := core.NowFunc()
	usr := User{
		Name:        nu.Name,
		Email:       nu.Email,
		Role:        nu.Role,
		Departments: nu.Departments,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if usr.Departments == nil {
		usr.Departments = []string{}
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

// Authenticate returns the active user matching the credentials and records the login.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		if core.IsNotFound(err) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if !usr.IsActive || usr.CheckPassword(pwd) != nil {
		return User{}, ErrInvalidCredentials
	}
	usr.LastLogin = core.NowFunc()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) Query(ctx context.Context, p access.Principal, filter QueryFilter) ([]User, error) {
	if err := access.Authorize(p, access.ActionManageUsers); err != nil {
		return nil, err
	}
	filter.Clean()
	return svc.repo.QueryUsers(ctx, filter)
}

// Update modifies a user. Users may edit their own name and password; everything else needs manage-users.
func (svc *Service) Update(ctx context.Context, p access.Principal, id string, uu UpdateUser) (User, error) {
	self := p.ID == id
	if !self {
		if err := access.Authorize(p, access.ActionManageUsers); err != nil {
			return User{}, err
		}
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}

	if !access.Can(p.Role, access.ActionManageUsers) {
		if uu.IsActive != nil || uu.Role != "" || uu.Email != "" || uu.Departments != nil {
			return User{}, access.ErrPermissionDenied
		}
	}
	uu.Clean(usr)
	if err = svc.validate.Struct(uu); err != nil {
		return User{}, err
	}
	if uu.Role != usr.Role && access.RolePriority(uu.Role) > access.RolePriority(p.Role) {
		return User{}, ErrRoleTooHigh
	}
	if err = svc.checkUniqueness(ctx, uu.Email, id); err != nil {
		return User{}, err
	}

	usr.Name = uu.Name
	usr.Email = uu.Email
	usr.Role = uu.Role
	usr.Departments = uu.Departments
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	}
	if uu.Password != "" {
		if err = usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "hashing password")
		}
	}
	usr.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateUser(ctx, usr)
}

// SetPassword replaces the password of a user after applying the password policy.
func (svc *Service) SetPassword(ctx context.Context, id, pwd string) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	uu := UpdateUser{Password: pwd, PasswordConfirm: pwd}
	uu.Clean(usr)
	if err = svc.validate.Struct(uu); err != nil {
		return User{}, err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateUser(ctx, usr)
}

// Delete removes a user. Nobody can delete their own account or one with a higher role.
func (svc *Service) Delete(ctx context.Context, p access.Principal, id string) error {
	if err := access.Authorize(p, access.ActionManageUsers); err != nil {
		return err
	}
	if p.ID == id {
		return ErrSelfDelete
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	if access.RolePriority(usr.Role) > access.RolePriority(p.Role) {
		return access.ErrPermissionDenied
	}
	return svc.repo.DeleteUser(ctx, id)
}

// RequestPasswordReset emails a password reset link to the active user owning email.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return ErrNotFound
	}
	token, err := svc.tokens.makeToken(usr)
	if err != nil {
		return errors.Wrap(err, "making token")
	}

	link := fmt.Sprintf("%s/password-reset/%s/%s", svc.conf.FrontendBaseURL, EncodeUID(usr), token)
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject: "Password Reset",
		BodyStr: fmt.Sprintf(
			"Hello %s,\r\n\r\nYou requested a password reset for your %s account.\r\n"+
				"Follow this link to choose a new password: %s\r\n\r\n"+
				"The link expires in %d days. Ignore this email if you did not make the request.\r\n",
			usr.Name, svc.conf.AppName, link, int(svc.conf.PasswordResetTimeoutDelta/(24*time.Hour)),
		),
		Categories: []string{"password-reset"},
	})
	return nil
}

// ResetPassword sets a new password for the user identified by a password reset link.
func (svc *Service) ResetPassword(ctx context.Context, data ResetUserPassword) error {
	if err := svc.validate.Struct(data); err != nil {
		return err
	}
	id, err := decodeUID(data.UID)
	if err != nil {
		return ErrInvalidResetUID
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return ErrInvalidResetUID
		}
		return err
	}
	if err = svc.tokens.verifyToken(usr, data.Token); err != nil {
		return ErrInvalidResetToken
	}
	if err = usr.SetPassword(data.Password); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = core.NowFunc()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return err
}
