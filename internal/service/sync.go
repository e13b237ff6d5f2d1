package service

import (
	"context"
	"time"

	"order-service/internal/models"
	"order-service/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Synchronizer: единственное место, где выводится агрегатный статус заказа из позиций.
type Synchronizer struct {
	store  repository.Store
	events publisher
	log    *zap.Logger
}

func NewSynchronizer(store repository.Store, events EventPublisher, log *zap.Logger) *Synchronizer {
	return &Synchronizer{
		store:  store,
		events: publisher{bus: events, log: log, now: time.Now},
		log:    log,
	}
}

// Sync переводит заказ в shipped, когда все позиции shipped. Понижения статуса нет.
func (s *Synchronizer) Sync(ctx context.Context, orderID uuid.UUID) (bool, error) {
	items, err := s.store.OrderItems().ListByOrder(ctx, orderID)
	if err != nil {
		return false, err
	}
	if len(items) == 0 {
		return false, nil
	}
	for _, it := range items {
		if it.Status != models.ItemStatusShipped {
			return false, nil
		}
	}

	changed, err := s.store.Orders().UpdateStatusIf(ctx, orderID, models.OrderStatusShipped)
	if err != nil {
		return false, err
	}
	if changed {
		s.log.Info("order shipped", zap.String("order_id", orderID.String()))
		s.events.publish(ctx, orderID, EventOrderShipped, OrderStatusEvent{OrderID: orderID, Status: models.OrderStatusShipped})
	}
	return changed, nil
}

// EscalatePaid: после оплаты pending-заказ -> processing, pending-позиции -> shipping.
// Повторный вызов ничего не меняет. Если контрольное чтение показывает pending,
// переход повторяется один раз.
func (s *Synchronizer) EscalatePaid(ctx context.Context, orderID uuid.UUID) error {
	const attempts = 2
	for attempt := 1; attempt <= attempts; attempt++ {
		err := s.store.WithTx(ctx, func(tx repository.Store) error {
			if _, err := tx.Orders().UpdateStatusIf(ctx, orderID, models.OrderStatusProcessing, models.OrderStatusPending); err != nil {
				return err
			}
			_, err := tx.OrderItems().TransitionByOrder(ctx, orderID, nil, models.ItemStatusPending, models.ItemStatusShipping)
			return err
		})
		if err != nil {
			s.log.Error("order escalation failed", zap.String("order_id", orderID.String()), zap.Int("attempt", attempt), zap.Error(err))
			return err
		}

		o, err := s.store.Orders().GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if o == nil {
			return ErrOrderNotFound
		}
		if o.Status != models.OrderStatusPending {
			break
		}
		s.log.Warn("order still pending after escalation", zap.String("order_id", orderID.String()), zap.Int("attempt", attempt))
	}

	_, err := s.Sync(ctx, orderID)
	return err
}

// Sweep: периодическая сверка вместо синхронизации на чтении.
func (s *Synchronizer) Sweep(ctx context.Context) (int, error) {
	ids, err := s.store.Orders().ListShippedCandidates(ctx, 500)
	if err != nil {
		return 0, err
	}
	changed := 0
	for _, id := range ids {
		ok, err := s.Sync(ctx, id)
		if err != nil {
			s.log.Error("order sync failed", zap.String("order_id", id.String()), zap.Error(err))
			continue
		}
		if ok {
			changed++
		}
	}
	if changed > 0 {
		s.log.Info("order sweep completed", zap.Int("candidates", len(ids)), zap.Int("shipped", changed))
	}
	return changed, nil
}
