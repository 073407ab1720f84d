package inmemdb

import (
	"sort"
	"strings"
	"time"

	"github.com/trezcool/ajira/core"
	"github.com/trezcool/ajira/core/profile"
)

type teacherRepository struct {
	db *teacherTable
}

var _ profile.TeacherRepository = (*teacherRepository)(nil)

func NewTeacherRepository(db *DB) *teacherRepository {
	return &teacherRepository{db: db.teachers}
}

func (repo *teacherRepository) query() []profile.Teacher {
	teachers := make([]profile.Teacher, 0, len(repo.db.table))
	for _, t := range repo.db.table {
		teachers = append(teachers, *t)
	}
	return teachers
}

func (repo *teacherRepository) CreateTeacher(t profile.Teacher) (profile.Teacher, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.table[t.ID] = &t
	return t, nil
}

func (repo *teacherRepository) GetTeacherByID(id string) (profile.Teacher, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if t, ok := repo.db.table[id]; ok {
		return *t, nil
	}
	return profile.Teacher{}, profile.ErrNotFound
}

func (repo *teacherRepository) GetTeacherByAccountID(accountID string) (profile.Teacher, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, t := range repo.query() {
		if t.AccountID == accountID {
			return t, nil
		}
	}
	return profile.Teacher{}, profile.ErrNotFound
}

func (repo *teacherRepository) FilterTeachers(filter profile.TeacherFilter, orderings ...core.DBOrdering) ([]profile.Teacher, error) {
	repo.db.mutex.RLock()
	teachers := repo.query()
	repo.db.mutex.RUnlock()

	if filter.IsEmpty() {
		sortTeachers(teachers, orderings)
		return teachers, nil
	}

	matched := make([]profile.Teacher, 0, len(teachers))
	for _, t := range teachers {
		if matchesFilter(t, filter) {
			matched = append(matched, t)
		}
	}
	sortTeachers(matched, orderings)
	return matched, nil
}

func matchesFilter(t profile.Teacher, filter profile.TeacherFilter) bool {
	if filter.Search != "" {
		search := strings.ToLower(filter.Search)
		found := strings.Contains(strings.ToLower(t.FirstName), search) ||
			strings.Contains(strings.ToLower(t.LastName), search)
		for _, subj := range t.Subjects {
			if found {
				break
			}
			found = strings.Contains(strings.ToLower(subj), search)
		}
		if !found {
			return false
		}
	}
	if filter.Statuses != nil {
		found := false
		for _, st := range filter.Statuses {
			if t.Status == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.Subjects != nil {
		found := false
	outer:
		for _, want := range filter.Subjects {
			for _, subj := range t.Subjects {
				if strings.EqualFold(subj, want) {
					found = true
					break outer
				}
			}
		}
		if !found {
			return false
		}
	}
	if !filter.CreatedFrom.IsZero() && t.CreatedAt.Before(filter.CreatedFrom) {
		return false
	}
	if !filter.CreatedTo.IsZero() && t.CreatedAt.After(filter.CreatedTo) {
		return false
	}
	return true
}

func sortTeachers(teachers []profile.Teacher, orderings []core.DBOrdering) {
	if len(orderings) == 0 {
		sort.Slice(teachers, func(i, j int) bool { return teachers[i].CreatedAt.Before(teachers[j].CreatedAt) })
		return
	}
	ord := orderings[0]
	sort.Slice(teachers, func(i, j int) bool {
		var less bool
		switch ord.Field {
		case "last_name":
			less = teachers[i].LastName < teachers[j].LastName
		case "status":
			less = teachers[i].Status.Order() < teachers[j].Status.Order()
		default:
			less = teachers[i].CreatedAt.Before(teachers[j].CreatedAt)
		}
		if ord.Ascending {
			return less
		}
		return !less
	})
}

func (repo *teacherRepository) UpdateTeacher(t profile.Teacher) (profile.Teacher, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[t.ID]; !ok {
		return profile.Teacher{}, profile.ErrNotFound
	}
	repo.db.table[t.ID] = &t
	return t, nil
}

func (repo *teacherRepository) SetTeacherStatus(id string, status profile.ApplicationStatus) (profile.Teacher, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	t, ok := repo.db.table[id]
	if !ok {
		return profile.Teacher{}, profile.ErrNotFound
	}
	t.Status = status
	t.UpdatedAt = time.Now().UTC()
	return *t, nil
}

func (repo *teacherRepository) DeleteTeachersByID(ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}
