package main

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/ajira/core"
	"github.com/trezcool/ajira/core/account"
	"github.com/trezcool/ajira/core/profile"
)

// createAdmin creates an active, pre-confirmed account with an admin profile.
// CLI-created operators never go through the email confirmation flow.
func (cli *commandLine) createAdmin(email, name, pwd string, owner bool) error {
	email = core.CleanString(email, true /* lower */)

	now := time.Now().UTC()
	acct := account.Account{
		ID:          uuid.New().String(),
		Email:       email,
		IsActive:    true,
		ConfirmedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := acct.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "setting password")
	}
	acct, err := cli.acctRepo.CreateAccount(acct)
	if err != nil {
		return errors.Wrap(err, "creating account")
	}

	roles := []string{profile.RoleAdmin, profile.RoleAdminStaff}
	if owner {
		roles = append(roles, profile.RoleAdminOwner)
	}
	if _, err = cli.profileSvc.CreateAdmin(profile.NewAdmin{
		AccountID: acct.ID,
		Name:      name,
		Roles:     roles,
	}); err != nil {
		return errors.Wrap(err, "creating admin profile")
	}
	return nil
}
