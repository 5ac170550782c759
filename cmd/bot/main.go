package main

import (
	"time"

	"go.uber.org/zap"

	"github.com/jcvalle/pagosbot/internal/bot"
	"github.com/jcvalle/pagosbot/internal/ledger"
	"github.com/jcvalle/pagosbot/internal/pin"
	"github.com/jcvalle/pagosbot/internal/registry"
	"github.com/jcvalle/pagosbot/internal/remote"
	"github.com/jcvalle/pagosbot/internal/session"
	"github.com/jcvalle/pagosbot/pkg/config"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", "config.yaml"))
	}

	// Without remote-store credentials no lookup can ever succeed, so this
	// is the one fatal startup condition.
	if cfg.Dropbox.AccessToken == "" {
		logger.Fatal("DROPBOX_ACCESS_TOKEN is not set")
	}

	store := remote.NewDropboxStore(cfg.Dropbox.AccessToken)
	cache, err := remote.NewFileCache(store, cfg.Cache.Dir, logger)
	if err != nil {
		logger.Fatal("Failed to initialize document cache", zap.Error(err))
	}

	// Initialize guardian registry
	var reg registry.Registry
	switch cfg.Registry.Backend {
	case "postgres":
		logger.Info("Using PostgreSQL registry")
		dbConfig := registry.DatabaseConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		}
		reg, err = registry.NewPostgresRegistry(dbConfig, logger)
	default:
		logger.Info("Using file registry", zap.String("path", cfg.Registry.File))
		reg, err = registry.NewFileRegistry(cfg.Registry.File, logger)
	}
	if err != nil {
		logger.Fatal("Failed to initialize registry", zap.Error(err))
	}
	defer reg.Close()

	finder := ledger.NewResolver(cache, cfg.Documents.StudentLedger, logger)
	pins := pin.NewValidator(cache, cfg.Documents.PinLedger, logger)
	sessions := session.NewStore(time.Duration(cfg.Session.TTLMinutes)*time.Minute, nil)

	// Initialize bot
	b, err := bot.New(cfg.Telegram.Token, logger)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	engine := bot.NewEngine(finder, pins, reg, sessions, b, cfg.School, logger)

	logger.Info("Bot started")
	if err := b.Run(engine); err != nil {
		logger.Fatal("Bot error", zap.Error(err))
	}
}
