// Package testutil sets up the validators, databases and users the tests of every package share.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/access"
	"github.com/trezcool/masomo-console/core/user"
	"github.com/trezcool/masomo-console/storage/database/inmem"
)

// Password of every seeded user.
const SeedPassword = "Masomo@2024"

// Seeded users, by id.
const (
	SuperAdminID  = "USR001"
	AdminID       = "USR002"
	InstitutionID = "USR003"
	PrincipalID   = "USR004"
	HODID         = "USR005"
	FacultyID     = "USR006"
	StudentID     = "USR007"
	ParentID      = "USR008"
)

// NewValidator returns a validator with every custom validation and English message registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")

	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

// SeededDB returns an in-memory database loaded with the demo fixtures.
func SeededDB(t *testing.T) *inmemdb.DB {
	t.Helper()
	db := inmemdb.Open()
	if err := inmemdb.Seed(db); err != nil {
		t.Fatalf("Seed() failed: %v", err)
	}
	return db
}

// GetUser returns a user of the database, failing the test if it is missing.
func GetUser(t *testing.T, db *inmemdb.DB, id string) user.User {
	t.Helper()
	usr, err := inmemdb.NewUserRepository(db).GetUserByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetUserByID(%s) failed: %v", id, err)
	}
	return usr
}

// Principal returns the principal of a user of the database.
func Principal(t *testing.T, db *inmemdb.DB, id string) access.Principal {
	t.Helper()
	return GetUser(t, db, id).Principal()
}

// AsRole returns a principal holding role, without a backing user.
func AsRole(role string, departments ...string) access.Principal {
	return access.Principal{ID: "USR-" + role, Name: "Test " + role, Email: role + "@test.test", Role: role, Departments: departments}
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd, role string,
	isActive bool,
	departments ...string,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	usr := user.User{
		Name:        name,
		Email:       email,
		Role:        role,
		Departments: append([]string{}, departments...),
		IsActive:    isActive,
		CreatedAt:   tstamp,
		UpdatedAt:   tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}
