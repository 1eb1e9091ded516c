package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/access"
	"github.com/trezcool/masomo-console/core/user"
)

// addUser updates or creates an active user.User
func (cli *commandLine) addUser(name, email, role, pwd string) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)
	role = core.CleanString(role, true /* lower */)
	if !access.IsValidRole(role) {
		return fmt.Errorf("invalid role %q, must be one of %v", role, access.AllRoles)
	}

	usr, err := cli.usrRepo.GetUserByEmail(ctx, email)
	exists := err == nil
	if err != nil && errors.Cause(err) != user.ErrNotFound {
		return err
	}
	now := time.Now().UTC()
	if !exists {
		usr = user.User{Email: email, CreatedAt: now}
	}
	usr.Name = name
	usr.Role = role
	usr.IsActive = true
	usr.UpdatedAt = now
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}

	if exists {
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	}
	return err
}
