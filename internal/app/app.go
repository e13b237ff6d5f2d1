package app

import (
	"time"

	"order-service/config"
	"order-service/internal/cache"
	"order-service/internal/gateway"
	"order-service/internal/producer"
	"order-service/internal/repository"
	"order-service/internal/scheduler"
	"order-service/internal/service"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App: собранный граф сервисов. Общий для cmd/service и cmd/opsctl.
type App struct {
	Store      *repository.Repository
	Ledger     *service.InventoryLedger
	Vouchers   *service.VoucherService
	Sync       *service.Synchronizer
	Reconciler *service.Reconciler
	Orders     service.OrderService
	Payments   service.PaymentService
	Scheduler  *scheduler.Scheduler

	closers []func() error
	log     *zap.Logger
}

// Build поднимает опциональные зависимости (redis, kafka, шлюзы) по конфигу.
// Отсутствующая зависимость отключает свою функцию, но не сервис.
func Build(cfg *config.Config, db *gorm.DB, log *zap.Logger) (*App, error) {
	a := &App{log: log}
	a.Store = repository.New(db)

	var locker scheduler.Locker
	if cfg.Redis.Enabled {
		rc, err := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rc.Close)
		a.Store.UseProductCache(rc, repository.CacheOptions{
			TTL: time.Duration(cfg.Redis.TTLSeconds) * time.Second,
			Log: log,
		})
		locker = rc
	} else {
		log.Info("redis disabled: product cache and scheduler lease are off")
	}

	var (
		emails service.EmailProducer
		events service.EventPublisher
	)
	if len(cfg.Kafka.Brokers) > 0 {
		ep := producer.NewEmailProducer(cfg.Kafka.Brokers, cfg.Kafka.EmailTopic)
		evp := producer.NewEventProducer(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic)
		a.closers = append(a.closers, ep.Close, evp.Close)
		emails, events = ep, evp
	} else {
		log.Info("kafka brokers not set: confirmation emails and order events are off")
	}

	qr := vietQRGateway(cfg, log)
	checkout := payOSGateway(cfg, log)

	a.Ledger = service.NewInventoryLedger(a.Store, log)
	a.Vouchers = service.NewVoucherService(a.Store, log)
	a.Sync = service.NewSynchronizer(a.Store, events, log)
	a.Reconciler = service.NewReconciler(service.ReconcilerDeps{
		Store:        a.Store,
		Synchronizer: a.Sync,
		QR:           qr,
		Checkout:     checkout,
		Events:       events,
		Log:          log,
		Window:       cfg.ReconcileWindow,
	})
	a.Orders = service.NewOrderService(a.Store, a.Ledger, a.Vouchers, a.Sync, emails, events, log)
	a.Payments = service.NewPaymentService(service.PaymentServiceDeps{
		Store:      a.Store,
		QR:         qr,
		Checkout:   checkout,
		Reconciler: a.Reconciler,
		BaseURL:    cfg.BaseURL,
		Log:        log,
	})
	a.Scheduler = scheduler.NewScheduler(a.Reconciler, a.Sync, locker, cfg.ReconcileInterval, log)

	return a, nil
}

// возвращаем интерфейс, а не *VietQRClient: nil-указатель в интерфейсе не равен nil
func vietQRGateway(cfg *config.Config, log *zap.Logger) service.QRGateway {
	if cfg.VietQR.ClientID == "" || cfg.VietQR.APIKey == "" || cfg.VietQR.AccountNo == "" {
		log.Warn("VietQR credentials not set: method disabled")
		return nil
	}
	return gateway.NewVietQRClient(gateway.Options{
		BaseURL:  cfg.VietQR.BaseURL,
		ClientID: cfg.VietQR.ClientID,
		APIKey:   cfg.VietQR.APIKey,
		Timeout:  cfg.GatewayTimeout,
	}, gateway.VietQRAccount{
		AccountNo:   cfg.VietQR.AccountNo,
		AccountName: cfg.VietQR.AccountName,
		AcqID:       cfg.VietQR.AcqID,
	})
}

func payOSGateway(cfg *config.Config, log *zap.Logger) service.CheckoutGateway {
	if cfg.PayOS.ClientID == "" || cfg.PayOS.APIKey == "" || cfg.PayOS.ChecksumKey == "" {
		log.Warn("PayOS credentials not set: method disabled")
		return nil
	}
	return gateway.NewPayOSClient(gateway.Options{
		BaseURL:  cfg.PayOS.BaseURL,
		ClientID: cfg.PayOS.ClientID,
		APIKey:   cfg.PayOS.APIKey,
		Timeout:  cfg.GatewayTimeout,
	}, cfg.PayOS.ChecksumKey)
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close dependency", zap.Error(err))
		}
	}
}
