package main

import (
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/ajira/core"
)

func (cli *commandLine) resetPassword(email, pwd string) error {
	acct, err := cli.acctRepo.GetAccountByEmail(core.CleanString(email, true /* lower */))
	if err != nil {
		return errors.Wrap(err, "finding account by email")
	}
	if err := acct.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "setting password")
	}
	acct.UpdatedAt = time.Now().UTC()
	if _, err := cli.acctRepo.UpdateAccount(acct); err != nil {
		return errors.Wrap(err, "updating account")
	}
	return nil
}
