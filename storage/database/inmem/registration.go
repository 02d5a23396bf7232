package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/philosothon/philosothon/core/registration"
)

type registrationRepository struct {
	db *registrationTable
}

var _ registration.Repository = (*registrationRepository)(nil) // interface compliance check

func NewRegistrationRepository(db *DB) registration.Repository {
	return &registrationRepository{db: db.registration}
}

func (repo *registrationRepository) CreateRegistration(_ context.Context, reg registration.Registration) (registration.Registration, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, r := range repo.db.table {
		if r.Email == reg.Email || (reg.UserID != "" && r.UserID == reg.UserID) {
			return registration.Registration{}, registration.ErrAlreadyRegistered
		}
	}
	stored := copyRegistration(reg)
	repo.db.table[reg.ID] = &stored
	return copyRegistration(stored), nil
}

func (repo *registrationRepository) GetRegistrationByID(_ context.Context, id string) (registration.Registration, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if reg, ok := repo.db.table[id]; ok {
		return copyRegistration(*reg), nil
	}
	return registration.Registration{}, registration.ErrNotFound
}

func (repo *registrationRepository) FilterRegistrations(_ context.Context, filter registration.QueryFilter) ([]registration.Registration, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	search := strings.ToLower(filter.Search)
	regs := make([]registration.Registration, 0)
	for _, reg := range repo.db.table {
		if search != "" && !strings.Contains(strings.ToLower(reg.Email), search) {
			continue
		}
		if !filter.SubmittedFrom.IsZero() && reg.SubmittedAt.Before(filter.SubmittedFrom) {
			continue
		}
		if !filter.SubmittedTo.IsZero() && reg.SubmittedAt.After(filter.SubmittedTo) {
			continue
		}
		regs = append(regs, copyRegistration(*reg))
	}
	sort.SliceStable(regs, func(i, j int) bool { return regs[i].SubmittedAt.After(regs[j].SubmittedAt) })
	return regs, nil
}

func copyRegistration(reg registration.Registration) registration.Registration {
	reg.Answers = reg.Answers.Clone()
	return reg
}
