package user

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/access"
)

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

var Roles = []Role{
	{Name: "Super Admin", Value: access.RoleSuperAdmin},
	{Name: "Admin", Value: access.RoleAdmin},
	{Name: "Institution", Value: access.RoleInstitution},
	{Name: "Principal", Value: access.RolePrincipal},
	{Name: "Head of Department", Value: access.RoleHOD},
	{Name: "Faculty", Value: access.RoleFaculty},
	{Name: "Student", Value: access.RoleStudent},
	{Name: "Parent", Value: access.RoleParent},
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	Departments  []string  `json:"departments"`
	IsActive     bool      `json:"is_active"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) IsAdmin() bool { return access.IsAdminRole(u.Role) }

// Principal is the identity the domain services authorize.
func (u User) Principal() access.Principal {
	return access.Principal{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Role:        u.Role,
		Departments: u.Departments,
	}
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string   `json:"name" validate:"required,notblank"`
	Email           string   `json:"email" validate:"required,email"`
	Role            string   `json:"role" validate:"required,role"`
	Departments     []string `json:"departments"`
	Password        string   `json:"password" validate:"required"`
	PasswordConfirm string   `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Clean() {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = core.CleanString(nu.Role, true /* lower */)
	nu.Departments = core.CleanStrings(nu.Departments)
}

// UpdateUser defines what information may be provided to modify an existing User.
// Empty fields keep their current value.
type UpdateUser struct {
	Name            string   `json:"name"`
	Email           string   `json:"email" validate:"omitempty,email"`
	Role            string   `json:"role" validate:"omitempty,role"`
	Departments     []string `json:"departments"`
	IsActive        *bool    `json:"is_active"`
	Password        string   `json:"password" validate:"omitempty"`
	PasswordConfirm string   `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Clean(orig User) {
	if name := core.CleanString(uu.Name); name != "" {
		uu.Name = name
	} else {
		uu.Name = orig.Name
	}
	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = orig.Email
	}
	if role := core.CleanString(uu.Role, true /* lower */); role != "" {
		uu.Role = role
	} else {
		uu.Role = orig.Role
	}
	if uu.Departments != nil {
		uu.Departments = core.CleanStrings(uu.Departments)
	} else {
		uu.Departments = orig.Departments
	}
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

// QueryFilter narrows down users. Search does a case-insensitive match on one of Name or Email.
type QueryFilter struct {
	Search     string `query:"search"`
	Role       string `query:"role"`
	Department string `query:"department"`
	IsActive   *bool  `query:"is_active"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Role = core.CleanString(qf.Role, true /* lower */)
	qf.Department = core.CleanString(qf.Department)
}

func (qf QueryFilter) Match(u User) bool {
	if qf.IsActive != nil && *qf.IsActive != u.IsActive {
		return false
	}
	if qf.Department != "" && qf.Department != "all" {
		found := false
		for _, d := range u.Departments {
			if d == qf.Department {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return core.ContainsFold(qf.Search, u.Name, u.Email) && core.MatchFilter(qf.Role, u.Role)
}
