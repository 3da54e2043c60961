package service

import (
	"time"

	"github.com/pkg/errors"
	"gitlab.com/kuberbook/settlement_api/config"
	"gitlab.com/kuberbook/settlement_api/queries"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// Service structure
type Service struct {
	cfg   config.Config
	repo  queries.Store
	loc   *time.Location
	clock func() time.Time
}

// Init the service
func Init(cfg config.Config, repo queries.Store) (*Service, error) {
	loc, err := cfg.Settlement.Location()
	if err != nil {
		return nil, errors.Wrapf(err, "invalid settlement timezone %q", cfg.Settlement.Timezone)
	}
	return &Service{
		cfg:   cfg,
		repo:  repo,
		loc:   loc,
		clock: time.Now,
	}, nil
}

// SetClock replaces the time source, used by tests and backfills
func (service *Service) SetClock(now func() time.Time) {
	service.clock = now
}

// Location is the timezone settlement days are cut in
func (service *Service) Location() *time.Location {
	return service.loc
}

// GetRepo returns the storage the service was initialised with
func (service *Service) GetRepo() queries.Store {
	return service.repo
}

func pageAndLimit(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}
