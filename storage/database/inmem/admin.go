package inmemdb

import (
	"github.com/trezcool/ajira/core/profile"
)

type adminRepository struct {
	db *adminTable
}

var _ profile.AdminRepository = (*adminRepository)(nil)

func NewAdminRepository(db *DB) *adminRepository {
	return &adminRepository{db: db.admins}
}

func (repo *adminRepository) CreateAdmin(a profile.AdminUser) (profile.AdminUser, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.table[a.ID] = &a
	return a, nil
}

func (repo *adminRepository) GetAdminByID(id string) (profile.AdminUser, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if a, ok := repo.db.table[id]; ok {
		return *a, nil
	}
	return profile.AdminUser{}, profile.ErrNotFound
}

func (repo *adminRepository) GetAdminByAccountID(accountID string) (profile.AdminUser, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, a := range repo.db.table {
		if a.AccountID == accountID {
			return *a, nil
		}
	}
	return profile.AdminUser{}, profile.ErrNotFound
}

func (repo *adminRepository) QueryAllAdmins() ([]profile.AdminUser, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	admins := make([]profile.AdminUser, 0, len(repo.db.table))
	for _, a := range repo.db.table {
		admins = append(admins, *a)
	}
	return admins, nil
}

func (repo *adminRepository) DeleteAdminsByID(ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}
