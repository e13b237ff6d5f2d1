package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"order-service/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PaymentPoller interface {
	PollPending(ctx context.Context) (service.PollStats, error)
}

type OrderSweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// Locker: аренда задачи между репликами (cache.RedisClient). nil: без аренды.
type Locker interface {
	AcquireLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error)
}

const (
	jobPaymentPoll = "payment-poll"
	jobOrderSweep  = "order-sweep"
)

type Scheduler struct {
	poller   PaymentPoller
	sweeper  OrderSweeper
	locker   Locker
	interval time.Duration
	owner    string
	log      *zap.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewScheduler(poller PaymentPoller, sweeper OrderSweeper, locker Locker, interval time.Duration, log *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Scheduler{
		poller:   poller,
		sweeper:  sweeper,
		locker:   locker,
		interval: interval,
		owner:    uuid.NewString(),
		log:      log,
		stopCh:   make(chan struct{}),
	}
}

// Start запускает планировщик задач
func (s *Scheduler) Start(ctx context.Context) {
	s.log.Info("starting reconciliation scheduler", zap.Duration("interval", s.interval))

	s.wg.Add(2)
	go s.loop(ctx, jobPaymentPoll, s.pollPayments)
	go s.loop(ctx, jobOrderSweep, s.sweepOrders)
}

// Stop останавливает планировщик и ждёт завершения горутин
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.log.Info("stopping reconciliation scheduler")
		close(s.stopCh)
	})
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, name string, job func(context.Context) error) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Выполняем сразу при старте
	s.runLocked(ctx, name, job)

	for {
		select {
		case <-ticker.C:
			s.runLocked(ctx, name, job)
		case <-s.stopCh:
			s.log.Info("scheduler job stopped", zap.String("job", name))
			return
		case <-ctx.Done():
			s.log.Info("scheduler job cancelled", zap.String("job", name))
			return
		}
	}
}

func (s *Scheduler) runLocked(ctx context.Context, name string, job func(context.Context) error) {
	if s.locker != nil {
		// ключ на интервал: в одном окне задачу выполняет одна реплика
		bucket := fmt.Sprintf("%s:%d", name, time.Now().Truncate(s.interval).Unix())
		ok, err := s.locker.AcquireLock(ctx, bucket, s.owner, s.interval)
		if err != nil {
			// без redis работаем как одиночная реплика
			s.log.Warn("scheduler lock unavailable, running anyway", zap.String("job", name), zap.Error(err))
		} else if !ok {
			s.log.Debug("scheduler job held by another replica", zap.String("job", name))
			return
		}
	}

	if err := job(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Error("scheduler job failed", zap.String("job", name), zap.Error(err))
	}
}

func (s *Scheduler) pollPayments(ctx context.Context) error {
	_, err := s.poller.PollPending(ctx)
	return err
}

func (s *Scheduler) sweepOrders(ctx context.Context) error {
	_, err := s.sweeper.Sweep(ctx)
	return err
}

// RunOnceNow выполняет обе задачи немедленно (ops CLI, тесты)
func (s *Scheduler) RunOnceNow(ctx context.Context) error {
	if err := s.pollPayments(ctx); err != nil {
		return err
	}
	return s.sweepOrders(ctx)
}
