package main

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/academy/core"
	"github.com/trezcool/academy/core/user"
)

// saveUser hashes `pwd` into usr and persists it.
func (cli *commandLine) saveUser(ctx context.Context, usr user.User, pwd string, isNew bool) error {
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	usr.UpdatedAt = core.NowFunc().UTC()

	var err error
	if isNew {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
	}
	return err
}

// addUser creates an active user, or reactivates and updates the one matching `uname` or `email`.
func (cli *commandLine) addUser(name, uname, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: []string{uname, email}})
	isNew := core.IsNotFound(err)
	switch {
	case isNew:
		usr = user.User{
			ID:        uuid.New().String(),
			Username:  uname,
			Email:     email,
			Roles:     user.LearnerRoles,
			CreatedAt: core.NowFunc().UTC(),
		}
	case err != nil:
		return err
	}

	if name = core.CleanString(name); name != "" {
		usr.Name = name
	}
	if isAdmin {
		usr.Roles = user.AllRoles
	}
	usr.IsActive = true
	return cli.saveUser(ctx, usr, pwd, isNew)
}

func (cli *commandLine) resetPassword(uname, pwd string) error {
	ctx := context.Background()
	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: []string{core.CleanString(uname, true /* lower */)}})
	if err != nil {
		return err
	}
	return cli.saveUser(ctx, usr, pwd, false)
}
