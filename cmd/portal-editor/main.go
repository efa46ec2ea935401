// Сервис редактора документов портала. Подключается к базе и хранилищу файлов,
// запускает фоновый перенос старого содержимого и HTTP-сервер.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aisa-it/portal/portal.go/internal/portal"
	"github.com/aisa-it/portal/portal.go/internal/portal/config"
	contentstore "github.com/aisa-it/portal/portal.go/internal/portal/content-store"
	"github.com/aisa-it/portal/portal.go/internal/portal/cronmanager"
	filestorage "github.com/aisa-it/portal/portal.go/internal/portal/file-storage"
	"github.com/aisa-it/portal/portal.go/internal/portal/gormlogger"
	"github.com/aisa-it/portal/portal.go/internal/portal/limiter"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var version string = "DEV"

// Пример запуска: go run main.go --trace --migrateLegacy
func main() {
	paramQueries := flag.Bool("paramQueries", true, "Mask queries params in log")
	noMigration := flag.Bool("noMigration", false, "Turn off DB migration")
	migrateLegacy := flag.Bool("migrateLegacy", false, "Move legacy content to record_contents and exit")
	trace := flag.Bool("trace", false, "Verbose logs and sql trace")
	flag.Parse()

	PrintBanner()

	if *trace {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	// Set prod log format
	if version != "DEV" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{})))
	}

	cfg, err := config.ReadConfig()
	if err != nil {
		slog.Error("Read config", "err", err)
		os.Exit(1)
	}

	slog.Info("Portal editor start.")

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: cfg.DatabaseDSN,
	}), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.NewGormLogger(slog.Default(), time.Second*4, *paramQueries),
	})
	if err != nil {
		slog.Error("Fail init DB connection", "err", err)
		os.Exit(1)
	}

	sqlDB, err := db.DB()
	if err != nil {
		slog.Error("Fail set settings to conn pool", "err", err)
		os.Exit(1)
	}
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(time.Minute * 15)

	gormStore := contentstore.NewGormStore(db)
	gormStore.MaxSize = cfg.MaxContentSize()
	if !*noMigration {
		if err := gormStore.Migrate(); err != nil {
			slog.Error("Migrate record_contents", "err", err)
			os.Exit(1)
		}
	}

	sources, err := contentstore.ParseLegacySources(cfg.LegacySources)
	if err != nil {
		slog.Error("Parse LEGACY_SOURCES", "err", err)
		os.Exit(1)
	}
	migrateJob := func(ctx context.Context) error {
		n, err := contentstore.MigrateLegacy(ctx, db, sources, cfg.MigrationWorkers)
		slog.Info("Legacy content migrated", "count", n)
		return err
	}

	if *migrateLegacy {
		if err := migrateJob(context.Background()); err != nil {
			slog.Error("Legacy migration", "err", err)
			os.Exit(1)
		}
		return
	}

	var contents contentstore.Store = gormStore
	if cfg.RedisURL != "" {
		client, err := contentstore.NewRedisClient(cfg.RedisURL)
		if err != nil {
			slog.Error("Fail init Redis connection", "err", err)
			os.Exit(1)
		}
		defer client.Close()
		contents = contentstore.NewCachedStore(gormStore, client, cfg.ContentCacheTTL())
	}

	storage, err := newFileStorage(cfg)
	if err != nil {
		slog.Error("Fail init file storage", "err", err)
		os.Exit(1)
	}

	schedule := cfg.LegacyMigrationSchedule
	if len(sources) == 0 {
		schedule = ""
	}
	cronManager := cronmanager.NewCronManager(cronmanager.JobRegistry{
		"legacy_content_migration": cronmanager.Job{
			Func:     migrateJob,
			Schedule: schedule,
		},
	})
	if err := cronManager.LoadJobs(); err != nil {
		slog.Error("Failed to load cron jobs", "err", err)
		os.Exit(1)
	}
	cronManager.Start()
	defer cronManager.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s := portal.NewServices(cfg, version, portal.Deps{
		Contents: contents,
		Storage:  storage,
		Limiter:  limiter.New(cfg.LimiterPluginPath, cfg.LimiterURL),
	})
	if err := portal.Server(ctx, s); err != nil {
		slog.Error("Server fail", "err", err)
		os.Exit(1)
	}
}

// newFileStorage выбирает хранилище файлов: S3, другой портал или локальный каталог.
func newFileStorage(cfg *config.Config) (filestorage.FileStorage, error) {
	switch {
	case cfg.AWSEndpoint != "":
		slog.Info("Using S3 file storage", "endpoint", cfg.AWSEndpoint, "bucket", cfg.AWSBucketName)
		return filestorage.NewMinioStorage(cfg.AWSEndpoint, cfg.AWSAccessKey, cfg.AWSSecretKey, cfg.AWSUseSSL, cfg.AWSBucketName, cfg.WebURL)
	case cfg.RemoteStorageURL != "":
		base, err := url.Parse(cfg.RemoteStorageURL)
		if err != nil {
			return nil, fmt.Errorf("REMOTE_STORAGE_URL incorrect: %w", err)
		}
		slog.Info("Using remote portal file storage", "url", base.String())
		return filestorage.NewRemoteStorage(base, cfg.RemoteStorageToken), nil
	default:
		slog.Info("Using local file storage", "dir", cfg.StorageDir)
		return filestorage.NewLocalStorage(cfg.StorageDir, cfg.WebURL)
	}
}

func PrintBanner() {
	banner := `
 ____            _        _
|  _ \ ___  _ __| |_ __ _| |
| |_) / _ \| '__| __/ _  | |
|  __/ (_) | |  | || (_| | |
|_|   \___/|_|   \__\__,_|_| editor %s
----------------------------------------------------
`
	colorReset := "\033[0m"
	colorYellow := "\033[33m"

	formattedVersion := version
	if version == "DEV" {
		formattedVersion = colorYellow + version + colorReset
	}
	fmt.Printf(banner, formattedVersion)
}
