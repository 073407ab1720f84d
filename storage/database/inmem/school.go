package inmemdb

import (
	"time"

	"github.com/trezcool/ajira/core/profile"
)

type schoolRepository struct {
	db *schoolTable
}

var _ profile.SchoolRepository = (*schoolRepository)(nil)

func NewSchoolRepository(db *DB) *schoolRepository {
	return &schoolRepository{db: db.schools}
}

func (repo *schoolRepository) CreateSchool(s profile.SchoolAccount) (profile.SchoolAccount, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.table[s.ID] = &s
	return s, nil
}

func (repo *schoolRepository) GetSchoolByID(id string) (profile.SchoolAccount, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.table[id]; ok {
		return *s, nil
	}
	return profile.SchoolAccount{}, profile.ErrNotFound
}

func (repo *schoolRepository) GetSchoolByAccountID(accountID string) (profile.SchoolAccount, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, s := range repo.db.table {
		if s.AccountID == accountID {
			return *s, nil
		}
	}
	return profile.SchoolAccount{}, profile.ErrNotFound
}

func (repo *schoolRepository) QueryAllSchools() ([]profile.SchoolAccount, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	schools := make([]profile.SchoolAccount, 0, len(repo.db.table))
	for _, s := range repo.db.table {
		schools = append(schools, *s)
	}
	return schools, nil
}

func (repo *schoolRepository) UpdateSchool(s profile.SchoolAccount) (profile.SchoolAccount, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[s.ID]; !ok {
		return profile.SchoolAccount{}, profile.ErrNotFound
	}
	repo.db.table[s.ID] = &s
	return s, nil
}

func (repo *schoolRepository) SetSchoolPaid(id string, paid bool) (profile.SchoolAccount, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	s, ok := repo.db.table[id]
	if !ok {
		return profile.SchoolAccount{}, profile.ErrNotFound
	}
	s.HasPaid = paid
	s.UpdatedAt = time.Now().UTC()
	return *s, nil
}

func (repo *schoolRepository) AddUnlockedTeacher(schoolID, teacherID string) (profile.SchoolAccount, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	s, ok := repo.db.table[schoolID]
	if !ok {
		return profile.SchoolAccount{}, profile.ErrNotFound
	}
	for _, id := range s.UnlockedTeacherIDs {
		if id == teacherID {
			return *s, nil
		}
	}
	s.UnlockedTeacherIDs = append(s.UnlockedTeacherIDs, teacherID)
	s.UpdatedAt = time.Now().UTC()
	return *s, nil
}
