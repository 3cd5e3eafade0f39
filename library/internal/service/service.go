package service

import (
	"time"

	"github.com/Astemirdum/school-library/library/internal/errs"
	"github.com/Astemirdum/school-library/library/internal/events"
	"github.com/Astemirdum/school-library/library/internal/metrics"
	"github.com/Astemirdum/school-library/library/internal/repository"
	"github.com/Astemirdum/school-library/pkg/auth"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Service struct {
	repo   repository.Repository
	tx     repository.Transactor
	events events.Publisher
	auth   auth.Config
	log    *zap.Logger
	now    func() time.Time
}

type Option func(*Service)

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		s.events = p
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(repo repository.Repository, tx repository.Transactor, authCfg auth.Config, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		tx:     tx,
		events: events.NewNoop(),
		auth:   authCfg,
		log:    log.Named("service"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// observe records the operation outcome. Infrastructure failures are logged
// here so handlers only see a generic message.
func (s *Service) observe(op string, start time.Time, err error) {
	metrics.Observe(op, start, err)
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, errs.ErrInventoryInconsistent):
		s.log.DPanic(op, zap.Error(err))
	case errs.KindOf(err) == errs.KindInternal:
		s.log.Error(op, zap.Error(err))
	default:
		s.log.Debug(op, zap.Error(err))
	}
}

func (s *Service) checkDueDate(due time.Time) error {
	if due.IsZero() || !due.After(s.now()) {
		return errs.ErrDueDateInPast
	}
	return nil
}
