package main

import (
	"context"

	"github.com/invigilo/invigilo/core"
	"github.com/invigilo/invigilo/core/authz"
	"github.com/invigilo/invigilo/core/user"
)

// addUser updates or creates a user account, bypassing the API checks.
func (cli *commandLine) addUser(uname, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		m := user.Mod{
			Name:     uname,
			Username: uname,
			Email:    email,
			Password: pwd,
		}
		if isAdmin {
			m.Roles = authz.AllRoles
		}
		_, err = cli.usrRepo.CreateNew(ctx, m)
		return err
	}

	if isAdmin {
		usr.Roles = authz.AllRoles
	}
	if _, err = cli.usrRepo.Save(ctx, usr.UUID, user.Mod{
		InstitutionID: usr.InstitutionID,
		Name:          usr.Name,
		Username:      uname,
		Email:         email,
		Roles:         usr.Roles,
	}); err != nil {
		return err
	}
	if _, err = cli.usrRepo.SetActive(ctx, usr.UUID, true); err != nil {
		return err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	_, err = cli.usrRepo.SetPassword(ctx, usr.UUID, usr.PasswordHash)
	return err
}
