package accrual

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper выполняет начисление по всем учётным записям с активными задачами.
type Sweeper interface {
	AccrueAll(ctx context.Context) (int, error)
}

// Scheduler периодически запускает обход начислений по расписанию cron.
type Scheduler struct {
	cron     *cron.Cron
	schedule cron.Schedule
	sweeper  Sweeper
	logger   *zap.Logger
}

// NewScheduler создаёт планировщик с расписанием в стандартном формате cron
// ("0 1 * * *") в часовом поясе бизнес-календаря.
func NewScheduler(spec string, loc *time.Location, sweeper Sweeper, logger *zap.Logger) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse accrual schedule %q: %w", spec, err)
	}
	if loc == nil {
		loc = time.UTC
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		schedule: schedule,
		sweeper:  sweeper,
		logger:   logger,
	}, nil
}

// Run запускает планировщик и блокируется до отмены контекста.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Schedule(s.schedule, cron.FuncJob(func() {
		s.sweep(ctx)
	}))

	s.cron.Start()
	s.logger.Info("accrual scheduler started")

	<-ctx.Done()

	stopped := s.cron.Stop()
	<-stopped.Done()
	s.logger.Info("accrual scheduler stopped")

	return nil
}

func (s *Scheduler) sweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	start := time.Now()
	n, err := s.sweeper.AccrueAll(ctx)
	if err != nil {
		s.logger.Error("accrual sweep failed", zap.Error(err), zap.Int("accounts", n))
		return
	}
	s.logger.Info("accrual sweep finished", zap.Int("accounts", n), zap.Duration("took", time.Since(start)))
}
