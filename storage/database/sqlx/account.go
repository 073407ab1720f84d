package sqlxrepos

import (
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ajira/core/account"
)

type accountRow struct {
	ID              string    `db:"id"`
	Email           string    `db:"email"`
	IsActive        bool      `db:"is_active"`
	PasswordHash    []byte    `db:"password_hash"`
	ConfirmedAt     null.Time `db:"confirmed_at"`
	LastLogin       null.Time `db:"last_login"`
	LastMagicLinkAt null.Time `db:"last_magic_link_at"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func (r accountRow) toAccount() account.Account {
	return account.Account{
		ID:              r.ID,
		Email:           r.Email,
		IsActive:        r.IsActive,
		PasswordHash:    r.PasswordHash,
		ConfirmedAt:     r.ConfirmedAt.Time,
		LastLogin:       r.LastLogin.Time,
		LastMagicLinkAt: r.LastMagicLinkAt.Time,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func newAccountRow(acct account.Account) accountRow {
	return accountRow{
		ID:              acct.ID,
		Email:           acct.Email,
		IsActive:        acct.IsActive,
		PasswordHash:    acct.PasswordHash,
		ConfirmedAt:     null.NewTime(acct.ConfirmedAt.UTC(), !acct.ConfirmedAt.IsZero()),
		LastLogin:       null.NewTime(acct.LastLogin.UTC(), !acct.LastLogin.IsZero()),
		LastMagicLinkAt: null.NewTime(acct.LastMagicLinkAt.UTC(), !acct.LastMagicLinkAt.IsZero()),
		CreatedAt:       acct.CreatedAt.UTC(),
		UpdatedAt:       acct.UpdatedAt.UTC(),
	}
}

type accountRepository struct {
	db *sqlx.DB
}

var _ account.Repository = (*accountRepository)(nil)

func NewAccountRepository(db *sql.DB) *accountRepository {
	return &accountRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo *accountRepository) CheckEmailUniqueness(email string, excludedAccounts ...account.Account) error {
	query := `SELECT count(*) FROM "account" WHERE email = $1`
	args := []interface{}{email}
	if len(excludedAccounts) > 0 {
		ids := make([]string, 0, len(excludedAccounts))
		for _, acct := range excludedAccounts {
			ids = append(ids, acct.ID)
		}
		var err error
		query, args, err = sqlx.In(`SELECT count(*) FROM "account" WHERE email = ? AND id NOT IN (?)`, email, ids)
		if err != nil {
			return errors.Wrap(err, "building query")
		}
		query = repo.db.Rebind(query)
	}

	var count int
	if err := repo.db.Get(&count, query, args...); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if count > 0 {
		return account.ErrEmailExists
	}
	return nil
}

func (repo *accountRepository) CreateAccount(acct account.Account) (account.Account, error) {
	row := newAccountRow(acct)
	_, err := repo.db.NamedExec(`
		INSERT INTO "account" (id, email, is_active, password_hash, confirmed_at, last_login, last_magic_link_at, created_at, updated_at)
		VALUES (:id, :email, :is_active, :password_hash, :confirmed_at, :last_login, :last_magic_link_at, :created_at, :updated_at)`,
		row,
	)
	if err != nil {
		if strings.Contains(err.Error(), "account_email_key") {
			return account.Account{}, account.ErrEmailExists
		}
		return account.Account{}, errors.Wrap(err, "inserting account")
	}
	return acct, nil
}

func (repo *accountRepository) get(where string, args ...interface{}) (account.Account, error) {
	var row accountRow
	if err := repo.db.Get(&row, `SELECT * FROM "account" WHERE `+where, args...); err != nil {
		if err == sql.ErrNoRows {
			return account.Account{}, account.ErrNotFound
		}
		return account.Account{}, errors.Wrap(err, "getting account")
	}
	return row.toAccount(), nil
}

func (repo *accountRepository) GetAccountByID(id string) (account.Account, error) {
	return repo.get("id = $1", id)
}

func (repo *accountRepository) GetAccountByEmail(email string) (account.Account, error) {
	return repo.get("email = $1", email)
}

func (repo *accountRepository) UpdateAccount(acct account.Account) (account.Account, error) {
	row := newAccountRow(acct)
	res, err := repo.db.NamedExec(`
		UPDATE "account"
		SET email = :email,
		    is_active = :is_active,
		    password_hash = :password_hash,
		    confirmed_at = :confirmed_at,
		    updated_at = :updated_at
		WHERE id = :id`,
		row,
	)
	if err != nil {
		return account.Account{}, errors.Wrap(err, "updating account")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return account.Account{}, account.ErrNotFound
	}
	return repo.GetAccountByID(acct.ID)
}

func (repo *accountRepository) SetLastLogin(acct account.Account) (account.Account, error) {
	now := time.Now().UTC()
	if _, err := repo.db.Exec(`UPDATE "account" SET last_login = $1 WHERE id = $2`, now, acct.ID); err != nil {
		return account.Account{}, errors.Wrap(err, "setting lastLogin")
	}
	acct.LastLogin = now
	return acct, nil
}

func (repo *accountRepository) SetLastMagicLink(acct account.Account, at time.Time) (account.Account, error) {
	if _, err := repo.db.Exec(`UPDATE "account" SET last_magic_link_at = $1 WHERE id = $2`, at.UTC(), acct.ID); err != nil {
		return account.Account{}, errors.Wrap(err, "setting lastMagicLinkAt")
	}
	acct.LastMagicLinkAt = at.UTC()
	return acct, nil
}

func (repo *accountRepository) DeleteAccountsByID(ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM "account" WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if _, err = repo.db.Exec(repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting accounts")
	}
	return nil
}
