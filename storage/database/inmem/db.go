package inmemdb

import (
	"sync"

	"github.com/philosothon/philosothon/core/registration"
	"github.com/philosothon/philosothon/core/user"
)

type (
	DB struct {
		user         *userTable
		session      *sessionTable
		progress     *progressTable
		registration *registrationTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	sessionTable struct {
		sync.RWMutex
		table map[string]*registration.Session
	}

	progressTable struct {
		sync.RWMutex
		table map[string]registration.AnswerSet
	}

	registrationTable struct {
		sync.RWMutex
		table map[string]*registration.Registration
	}
)

func Open() *DB {
	return &DB{
		user:         &userTable{table: make(map[string]*user.User)},
		session:      &sessionTable{table: make(map[string]*registration.Session)},
		progress:     &progressTable{table: make(map[string]registration.AnswerSet)},
		registration: &registrationTable{table: make(map[string]*registration.Registration)},
	}
}
