package sqlxrepos

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ajira/core"
	"github.com/trezcool/ajira/core/profile"
)

type teacherRow struct {
	ID        string         `db:"id"`
	AccountID string         `db:"account_id"`
	FirstName string         `db:"first_name"`
	LastName  string         `db:"last_name"`
	Phone     null.String    `db:"phone"`
	Subjects  pq.StringArray `db:"subjects"`
	CVURL     null.String    `db:"cv_url"`
	VideoURL  null.String    `db:"video_url"`
	PhotoURL  null.String    `db:"photo_url"`
	Status    string         `db:"status"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func (r teacherRow) toTeacher() profile.Teacher {
	return profile.Teacher{
		ID:        r.ID,
		AccountID: r.AccountID,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Phone:     r.Phone.String,
		Subjects:  r.Subjects,
		CVURL:     r.CVURL.String,
		VideoURL:  r.VideoURL.String,
		PhotoURL:  r.PhotoURL.String,
		Status:    profile.ApplicationStatus(r.Status),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func newTeacherRow(t profile.Teacher) teacherRow {
	return teacherRow{
		ID:        t.ID,
		AccountID: t.AccountID,
		FirstName: t.FirstName,
		LastName:  t.LastName,
		Phone:     null.NewString(t.Phone, t.Phone != ""),
		Subjects:  t.Subjects,
		CVURL:     null.NewString(t.CVURL, t.CVURL != ""),
		VideoURL:  null.NewString(t.VideoURL, t.VideoURL != ""),
		PhotoURL:  null.NewString(t.PhotoURL, t.PhotoURL != ""),
		Status:    string(t.Status),
		CreatedAt: t.CreatedAt.UTC(),
		UpdatedAt: t.UpdatedAt.UTC(),
	}
}

type teacherRepository struct {
	db *sqlx.DB
}

var _ profile.TeacherRepository = (*teacherRepository)(nil)

func NewTeacherRepository(db *sql.DB) *teacherRepository {
	return &teacherRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo *teacherRepository) CreateTeacher(t profile.Teacher) (profile.Teacher, error) {
	row := newTeacherRow(t)
	_, err := repo.db.NamedExec(`
		INSERT INTO teacher (id, account_id, first_name, last_name, phone, subjects, cv_url, video_url, photo_url, status, created_at, updated_at)
		VALUES (:id, :account_id, :first_name, :last_name, :phone, :subjects, :cv_url, :video_url, :photo_url, :status, :created_at, :updated_at)`,
		row,
	)
	if err != nil {
		return profile.Teacher{}, errors.Wrap(err, "inserting teacher")
	}
	return t, nil
}

func (repo *teacherRepository) get(where string, args ...interface{}) (profile.Teacher, error) {
	var row teacherRow
	if err := repo.db.Get(&row, `SELECT * FROM teacher WHERE `+where, args...); err != nil {
		if err == sql.ErrNoRows {
			return profile.Teacher{}, profile.ErrNotFound
		}
		return profile.Teacher{}, errors.Wrap(err, "getting teacher")
	}
	return row.toTeacher(), nil
}

func (repo *teacherRepository) GetTeacherByID(id string) (profile.Teacher, error) {
	return repo.get("id = $1", id)
}

func (repo *teacherRepository) GetTeacherByAccountID(accountID string) (profile.Teacher, error) {
	return repo.get("account_id = $1", accountID)
}

func (repo *teacherRepository) FilterTeachers(filter profile.TeacherFilter, orderings ...core.DBOrdering) ([]profile.Teacher, error) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.Search != "" {
		add(`(first_name ILIKE '%%' || $%d || '%%' OR last_name ILIKE '%%' || $%[1]d || '%%' OR EXISTS (
			SELECT 1 FROM unnest(subjects) AS subj WHERE subj ILIKE '%%' || $%[1]d || '%%'))`, filter.Search)
	}
	if filter.Statuses != nil {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, st := range filter.Statuses {
			statuses = append(statuses, string(st))
		}
		add(`status = ANY($%d)`, pq.StringArray(statuses))
	}
	if filter.Subjects != nil {
		add(`subjects && $%d`, pq.StringArray(filter.Subjects))
	}
	if !filter.CreatedFrom.IsZero() {
		add(`created_at >= $%d`, filter.CreatedFrom.UTC())
	}
	if !filter.CreatedTo.IsZero() {
		add(`created_at <= $%d`, filter.CreatedTo.UTC())
	}

	query := `SELECT * FROM teacher`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY " + orderBy(orderings)

	var rows []teacherRow
	if err := repo.db.Select(&rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering teachers")
	}
	teachers := make([]profile.Teacher, 0, len(rows))
	for _, row := range rows {
		teachers = append(teachers, row.toTeacher())
	}
	return teachers, nil
}

var teacherOrderFields = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"last_name":  true,
	"status":     true,
}

func orderBy(orderings []core.DBOrdering) string {
	clauses := make([]string, 0, len(orderings))
	for _, ord := range orderings {
		if teacherOrderFields[ord.Field] {
			clauses = append(clauses, ord.String())
		}
	}
	if len(clauses) == 0 {
		return "created_at ASC"
	}
	return strings.Join(clauses, ", ")
}

func (repo *teacherRepository) UpdateTeacher(t profile.Teacher) (profile.Teacher, error) {
	row := newTeacherRow(t)
	res, err := repo.db.NamedExec(`
		UPDATE teacher
		SET first_name = :first_name,
		    last_name = :last_name,
		    phone = :phone,
		    subjects = :subjects,
		    cv_url = :cv_url,
		    video_url = :video_url,
		    photo_url = :photo_url,
		    updated_at = :updated_at
		WHERE id = :id`,
		row,
	)
	if err != nil {
		return profile.Teacher{}, errors.Wrap(err, "updating teacher")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return profile.Teacher{}, profile.ErrNotFound
	}
	return t, nil
}

func (repo *teacherRepository) SetTeacherStatus(id string, status profile.ApplicationStatus) (profile.Teacher, error) {
	if _, err := repo.db.Exec(
		`UPDATE teacher SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), id,
	); err != nil {
		return profile.Teacher{}, errors.Wrap(err, "setting teacher status")
	}
	return repo.GetTeacherByID(id)
}

func (repo *teacherRepository) DeleteTeachersByID(ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM teacher WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if _, err = repo.db.Exec(repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting teachers")
	}
	return nil
}
