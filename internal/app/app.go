// Package app assembles the service dependency graph. The assembled graph is
// an explicit process-wide singleton: Init is idempotent and concurrency-safe,
// the first caller's configuration wins and every later caller observes the
// same instance. Nothing in the repo reaches for module-level mutable state
// instead.
package app

import (
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"telehealth-consultation-service/internal/adapters"
	"telehealth-consultation-service/internal/config"
	"telehealth-consultation-service/internal/domain/repositories"
	"telehealth-consultation-service/internal/services"
)

// App is the wired dependency graph of the consultation service.
type App struct {
	Config *config.Config
	Logger *zap.Logger

	Store repositories.ConsultationStoreContract
	Users repositories.UserRepositoryContract

	Video    adapters.VideoRoomProvider
	Payments adapters.PaymentProvider
	SlotLock adapters.SlotLocker

	ConsultationService services.ConsultationServiceContract
	JoinService         services.JoinServiceContract
	PaymentService      services.PaymentServiceContract
	AuditService        services.AuditServiceContract
}

var (
	instance *App
	initErr  error
	once     sync.Once
)

// Init builds the dependency graph exactly once and returns it. Subsequent
// calls return the instance built by the first caller, ignoring their
// arguments. An initialization failure is sticky: every caller observes the
// same error.
func Init(cfg *config.Config, logger *zap.Logger) (*App, error) {
	once.Do(func() {
		instance, initErr = build(cfg, logger)
	})
	return instance, initErr
}

func build(cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	if cfg.DatabaseURL != "" {
		db, err := repositories.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		if err := repositories.Migrate(db); err != nil {
			return nil, fmt.Errorf("migrating schema: %w", err)
		}
		a.Store = repositories.NewGormConsultationStore(db)
		a.Users = repositories.NewGormUserRepository(db)
		logger.Info("using postgres store")
	} else {
		a.Store = repositories.NewInMemoryConsultationStore()
		a.Users = repositories.NewInMemoryUserRepository()
		logger.Warn("DATABASE_URL not set, using the in-memory store")
	}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		a.SlotLock = adapters.NewRedisSlotLocker(client, logger)
		logger.Info("using redis advisory slot lock", zap.String("addr", cfg.RedisAddr))
	} else {
		a.SlotLock = adapters.NewInMemorySlotLocker()
		logger.Warn("REDIS_ADDR not set, using the process-local slot lock")
	}

	if cfg.VideoAPIURL != "" {
		a.Video = adapters.NewHTTPVideoProvider(cfg.VideoAPIURL, cfg.VideoAPIKey,
			[]byte(cfg.VideoTokenSecret), cfg.JoinTokenTTL, logger)
	} else {
		a.Video = adapters.NewInMemoryVideoProvider([]byte(cfg.VideoTokenSecret), cfg.JoinTokenTTL)
		logger.Warn("VIDEO_API_URL not set, using the in-memory video provider")
	}

	if cfg.PaymentAPIURL != "" {
		a.Payments = adapters.NewHTTPPaymentProvider(cfg.PaymentAPIURL, cfg.PaymentAPIKey, logger)
	} else {
		a.Payments = adapters.NewInMemoryPaymentProvider()
		logger.Warn("PAYMENT_API_URL not set, using the in-memory payment provider")
	}

	fees := services.NewFeeSchedule(cfg.FeeCurrency, cfg.FeeOverridesCents)

	a.ConsultationService = services.NewConsultationService(a.Store, a.Users, a.SlotLock, logger)
	a.JoinService = services.NewJoinService(a.Store, a.Video, logger)
	a.PaymentService = services.NewPaymentService(a.Store, a.Payments, fees, logger)
	a.AuditService = services.NewAuditService(a.Store, logger)

	return a, nil
}
