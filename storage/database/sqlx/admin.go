package sqlxrepos

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/ajira/core/profile"
)

type adminRow struct {
	ID        string         `db:"id"`
	AccountID string         `db:"account_id"`
	Name      string         `db:"name"`
	Roles     pq.StringArray `db:"roles"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func (r adminRow) toAdmin() profile.AdminUser {
	return profile.AdminUser{
		ID:        r.ID,
		AccountID: r.AccountID,
		Name:      r.Name,
		Roles:     r.Roles,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func newAdminRow(a profile.AdminUser) adminRow {
	return adminRow{
		ID:        a.ID,
		AccountID: a.AccountID,
		Name:      a.Name,
		Roles:     a.Roles,
		CreatedAt: a.CreatedAt.UTC(),
		UpdatedAt: a.UpdatedAt.UTC(),
	}
}

type adminRepository struct {
	db *sqlx.DB
}

var _ profile.AdminRepository = (*adminRepository)(nil)

func NewAdminRepository(db *sql.DB) *adminRepository {
	return &adminRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo *adminRepository) CreateAdmin(a profile.AdminUser) (profile.AdminUser, error) {
	row := newAdminRow(a)
	_, err := repo.db.NamedExec(`
		INSERT INTO admin_user (id, account_id, name, roles, created_at, updated_at)
		VALUES (:id, :account_id, :name, :roles, :created_at, :updated_at)`,
		row,
	)
	if err != nil {
		return profile.AdminUser{}, errors.Wrap(err, "inserting admin")
	}
	return a, nil
}

func (repo *adminRepository) get(where string, args ...interface{}) (profile.AdminUser, error) {
	var row adminRow
	if err := repo.db.Get(&row, `SELECT * FROM admin_user WHERE `+where, args...); err != nil {
		if err == sql.ErrNoRows {
			return profile.AdminUser{}, profile.ErrNotFound
		}
		return profile.AdminUser{}, errors.Wrap(err, "getting admin")
	}
	return row.toAdmin(), nil
}

func (repo *adminRepository) GetAdminByID(id string) (profile.AdminUser, error) {
	return repo.get("id = $1", id)
}

func (repo *adminRepository) GetAdminByAccountID(accountID string) (profile.AdminUser, error) {
	return repo.get("account_id = $1", accountID)
}

func (repo *adminRepository) QueryAllAdmins() ([]profile.AdminUser, error) {
	var rows []adminRow
	if err := repo.db.Select(&rows, `SELECT * FROM admin_user ORDER BY created_at`); err != nil {
		return nil, errors.Wrap(err, "querying admins")
	}
	admins := make([]profile.AdminUser, 0, len(rows))
	for _, row := range rows {
		admins = append(admins, row.toAdmin())
	}
	return admins, nil
}

func (repo *adminRepository) DeleteAdminsByID(ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM admin_user WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if _, err = repo.db.Exec(repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting admins")
	}
	return nil
}
