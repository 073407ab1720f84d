package inmemdb

import (
	"sync"

	"github.com/trezcool/ajira/core/account"
	"github.com/trezcool/ajira/core/profile"
)

// DB is an in-memory store used by tests and local hacking. Each table has
// its own lock; cross-table consistency is the caller's problem, same as the
// real database.
type DB struct {
	accounts *accountTable
	teachers *teacherTable
	admins   *adminTable
	schools  *schoolTable
}

type (
	accountTable struct {
		mutex sync.RWMutex
		table map[string]*account.Account
	}
	teacherTable struct {
		mutex sync.RWMutex
		table map[string]*profile.Teacher
	}
	adminTable struct {
		mutex sync.RWMutex
		table map[string]*profile.AdminUser
	}
	schoolTable struct {
		mutex sync.RWMutex
		table map[string]*profile.SchoolAccount
	}
)

func Open() (*DB, error) {
	db := &DB{
		accounts: &accountTable{table: make(map[string]*account.Account)},
		teachers: &teacherTable{table: make(map[string]*profile.Teacher)},
		admins:   &adminTable{table: make(map[string]*profile.AdminUser)},
		schools:  &schoolTable{table: make(map[string]*profile.SchoolAccount)},
	}
	return db, nil
}
