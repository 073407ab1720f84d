package sqlxrepos

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ajira/core/profile"
)

type schoolRow struct {
	ID          string      `db:"id"`
	AccountID   string      `db:"account_id"`
	SchoolName  string      `db:"school_name"`
	ContactName string      `db:"contact_name"`
	Phone       null.String `db:"phone"`
	Country     null.String `db:"country"`
	HasPaid     bool        `db:"has_paid"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func (r schoolRow) toSchool() profile.SchoolAccount {
	return profile.SchoolAccount{
		ID:          r.ID,
		AccountID:   r.AccountID,
		SchoolName:  r.SchoolName,
		ContactName: r.ContactName,
		Phone:       r.Phone.String,
		Country:     r.Country.String,
		HasPaid:     r.HasPaid,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func newSchoolRow(s profile.SchoolAccount) schoolRow {
	return schoolRow{
		ID:          s.ID,
		AccountID:   s.AccountID,
		SchoolName:  s.SchoolName,
		ContactName: s.ContactName,
		Phone:       null.NewString(s.Phone, s.Phone != ""),
		Country:     null.NewString(s.Country, s.Country != ""),
		HasPaid:     s.HasPaid,
		CreatedAt:   s.CreatedAt.UTC(),
		UpdatedAt:   s.UpdatedAt.UTC(),
	}
}

type schoolRepository struct {
	db *sqlx.DB
}

var _ profile.SchoolRepository = (*schoolRepository)(nil)

func NewSchoolRepository(db *sql.DB) *schoolRepository {
	return &schoolRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo *schoolRepository) CreateSchool(s profile.SchoolAccount) (profile.SchoolAccount, error) {
	row := newSchoolRow(s)
	_, err := repo.db.NamedExec(`
		INSERT INTO school_account (id, account_id, school_name, contact_name, phone, country, has_paid, created_at, updated_at)
		VALUES (:id, :account_id, :school_name, :contact_name, :phone, :country, :has_paid, :created_at, :updated_at)`,
		row,
	)
	if err != nil {
		return profile.SchoolAccount{}, errors.Wrap(err, "inserting school")
	}
	return s, nil
}

func (repo *schoolRepository) get(where string, args ...interface{}) (profile.SchoolAccount, error) {
	var row schoolRow
	if err := repo.db.Get(&row, `SELECT * FROM school_account WHERE `+where, args...); err != nil {
		if err == sql.ErrNoRows {
			return profile.SchoolAccount{}, profile.ErrNotFound
		}
		return profile.SchoolAccount{}, errors.Wrap(err, "getting school")
	}
	s := row.toSchool()
	if err := repo.loadUnlocked(&s); err != nil {
		return profile.SchoolAccount{}, err
	}
	return s, nil
}

func (repo *schoolRepository) loadUnlocked(s *profile.SchoolAccount) error {
	if err := repo.db.Select(
		&s.UnlockedTeacherIDs,
		`SELECT teacher_id FROM school_unlocked_teacher WHERE school_id = $1 ORDER BY unlocked_at`,
		s.ID,
	); err != nil {
		return errors.Wrap(err, "loading unlocked teachers")
	}
	return nil
}

func (repo *schoolRepository) GetSchoolByID(id string) (profile.SchoolAccount, error) {
	return repo.get("id = $1", id)
}

func (repo *schoolRepository) GetSchoolByAccountID(accountID string) (profile.SchoolAccount, error) {
	return repo.get("account_id = $1", accountID)
}

func (repo *schoolRepository) QueryAllSchools() ([]profile.SchoolAccount, error) {
	var rows []schoolRow
	if err := repo.db.Select(&rows, `SELECT * FROM school_account ORDER BY created_at`); err != nil {
		return nil, errors.Wrap(err, "querying schools")
	}
	schools := make([]profile.SchoolAccount, 0, len(rows))
	for _, row := range rows {
		s := row.toSchool()
		if err := repo.loadUnlocked(&s); err != nil {
			return nil, err
		}
		schools = append(schools, s)
	}
	return schools, nil
}

func (repo *schoolRepository) UpdateSchool(s profile.SchoolAccount) (profile.SchoolAccount, error) {
	row := newSchoolRow(s)
	res, err := repo.db.NamedExec(`
		UPDATE school_account
		SET school_name = :school_name,
		    contact_name = :contact_name,
		    phone = :phone,
		    country = :country,
		    updated_at = :updated_at
		WHERE id = :id`,
		row,
	)
	if err != nil {
		return profile.SchoolAccount{}, errors.Wrap(err, "updating school")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return profile.SchoolAccount{}, profile.ErrNotFound
	}
	return s, nil
}

func (repo *schoolRepository) SetSchoolPaid(id string, paid bool) (profile.SchoolAccount, error) {
	if _, err := repo.db.Exec(
		`UPDATE school_account SET has_paid = $1, updated_at = $2 WHERE id = $3`,
		paid, time.Now().UTC(), id,
	); err != nil {
		return profile.SchoolAccount{}, errors.Wrap(err, "setting school paid flag")
	}
	return repo.GetSchoolByID(id)
}

func (repo *schoolRepository) AddUnlockedTeacher(schoolID, teacherID string) (profile.SchoolAccount, error) {
	if _, err := repo.db.Exec(
		`INSERT INTO school_unlocked_teacher (school_id, teacher_id, unlocked_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (school_id, teacher_id) DO NOTHING`,
		schoolID, teacherID, time.Now().UTC(),
	); err != nil {
		return profile.SchoolAccount{}, errors.Wrap(err, "recording unlocked teacher")
	}
	return repo.GetSchoolByID(schoolID)
}
