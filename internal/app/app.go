// Package app wires configuration into the running components shared by the
// api-server, the reminder worker and clinicctl.
package app

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hackgods/mindcare/internal/appointment"
	"github.com/hackgods/mindcare/internal/config"
	"github.com/hackgods/mindcare/internal/db"
	"github.com/hackgods/mindcare/internal/identity"
	"github.com/hackgods/mindcare/internal/notify"
	redisclient "github.com/hackgods/mindcare/internal/redis"
	"github.com/hackgods/mindcare/internal/reminder"
)

type App struct {
	Config     config.Config
	Logger     *zap.Logger
	Pool       *pgxpool.Pool
	Redis      *redis.Client // nil when locks are in-process
	Migrator   *db.Migrator
	Service    *appointment.Service
	Directory  *appointment.Directory
	Reminders  reminder.Repository
	Scheduler  *reminder.Scheduler
	Dispatcher *reminder.Dispatcher
}

// New connects Postgres and Redis and builds the lifecycle service with its
// notifiers. Migrations are applied first when AUTO_MIGRATE is set.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	pgCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	pool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolOptions{MaxConns: cfg.PostgresMaxConns})
	cancel()
	if err != nil {
		return nil, err
	}
	logger.Info("connected to Postgres")

	migrator, err := db.NewMigrator(pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := migrator.Up(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("migrations applied")
	}

	rdb, locker, err := redisclient.Connect(ctx, redisclient.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
		LockTTL:  cfg.LockTTL,
	}, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}

	renderer, err := notify.NewRenderer(cfg.ClinicTimezone)
	if err != nil {
		pool.Close()
		closeRedis(rdb, logger)
		return nil, err
	}
	mailer := notify.NewMailer(cfg.SMTP, logger)

	notifiers := notify.Fanout{notify.NewEmailNotifier(mailer, renderer, logger)}
	if cfg.TelegramToken != "" && cfg.TelegramAdminChatID != 0 {
		client, err := notify.NewTelegramClient(cfg.TelegramToken)
		if err != nil {
			// admin chat alerts are optional; mail still goes out
			logger.Warn("telegram disabled", zap.Error(err))
		} else {
			notifiers = append(notifiers, notify.NewTelegramNotifier(client, cfg.TelegramAdminChatID, renderer, logger))
		}
	}

	store := appointment.NewPgStore(pool)
	scheduler := reminder.NewScheduler(logger)
	svc := appointment.NewService(appointment.Deps{
		Store:     store,
		Locker:    locker,
		Notifier:  notifiers,
		Reminders: scheduler,
		Hasher:    identity.NewHasher(0),
		Logger:    logger,
	}, cfg)

	reminders := reminder.NewPgRepository(pool)
	sender := notify.NewReminderSender(svc.ReminderView, mailer, renderer)

	return &App{
		Config:     cfg,
		Logger:     logger,
		Pool:       pool,
		Redis:      rdb,
		Migrator:   migrator,
		Service:    svc,
		Directory:  appointment.NewDirectory(store, logger),
		Reminders:  reminders,
		Scheduler:  scheduler,
		Dispatcher: reminder.NewDispatcher(reminders, sender, logger),
	}, nil
}

// DispatchOptions turns the configured batch limits into dispatcher options.
func (a *App) DispatchOptions() reminder.DispatchOptions {
	return reminder.DispatchOptions{
		BatchSize:  a.Config.ReminderBatchSize,
		MaxRetries: a.Config.ReminderMaxRetries,
	}
}

func (a *App) Close() {
	closeRedis(a.Redis, a.Logger)
	a.Pool.Close()
}

func closeRedis(rdb *redis.Client, logger *zap.Logger) {
	if rdb == nil {
		return
	}
	if err := rdb.Close(); err != nil {
		logger.Warn("error closing redis", zap.Error(err))
	}
}
