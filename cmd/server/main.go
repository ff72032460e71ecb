package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/JonMunkholm/promptsync/internal/config"
	"github.com/JonMunkholm/promptsync/internal/core"
	_ "github.com/JonMunkholm/promptsync/internal/core/tables" // Register all tables
	"github.com/JonMunkholm/promptsync/internal/logging"
	"github.com/JonMunkholm/promptsync/internal/lookup"
	"github.com/JonMunkholm/promptsync/internal/sink"
	"github.com/JonMunkholm/promptsync/internal/web"
	"github.com/JonMunkholm/promptsync/internal/workbook"
)

func main() {
	once := flag.String("once", "", "run one export path (kv or bulk) and exit")
	flag.Parse()

	// Overload lets a local .env win over the shell environment
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		slog.Error("failed to load AWS configuration", "error", err)
		os.Exit(1)
	}

	var pool *pgxpool.Pool
	if cfg.Database.Enabled() {
		pool, err = connectDatabase(ctx, cfg.Database)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
	}

	client, err := newWorkbookClient(cfg, awsCfg)
	if err != nil {
		slog.Error("failed to create workbook client", "error", err)
		os.Exit(1)
	}
	kv, err := newKV(ctx, cfg, awsCfg, pool)
	if err != nil {
		slog.Error("failed to create key-value sink", "error", err)
		os.Exit(1)
	}
	archive := newArchive(cfg, awsCfg)

	var history core.HistoryStore = core.NewMemoryHistory(core.DefaultHistorySize)
	if pool != nil {
		pg := core.NewPostgresHistory(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			slog.Error("failed to create run history table", "error", err)
			os.Exit(1)
		}
		history = pg
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	service := core.NewService(client, kv, archive, history, core.OptionsFromConfig(cfg),
		core.WithMetrics(core.NewMetrics(reg)),
	)
	slog.Info("tables registered", "count", len(core.All()))

	if *once != "" {
		code := runOnce(ctx, service, *once)
		if pool != nil {
			pool.Close()
		}
		os.Exit(code)
	}

	prompts := lookup.NewService(kv, cfg.Export.TargetLocales[0], cfg.Export.EmptySpeech)
	server := web.NewServer(cfg, service, prompts, reg)

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go service.StartScheduler(jobCtx, core.PathKV, cfg.Schedule.KVInterval)
	go service.StartScheduler(jobCtx, core.PathBulk, cfg.Schedule.BulkInterval)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if n := service.Limiter().ActiveCount(); n > 0 {
			slog.Info("waiting for export runs to complete", "active", n)
			if err := service.Limiter().WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("export runs did not complete in time", "error", err)
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// runOnce runs a single export and returns the process exit code.
func runOnce(ctx context.Context, service *core.Service, name string) int {
	path, err := core.ParsePath(name)
	if err != nil {
		slog.Error("invalid -once value", "value", name, "error", err)
		return 2
	}

	ctx = core.ContextWithTrigger(ctx, core.TriggerCLI)
	res, err := service.Run(ctx, path)
	if err != nil {
		msg := core.MapError(err)
		fmt.Fprintf(os.Stderr, "%s (%s): %s\n", msg.Message, msg.Code, msg.Action)
		return 1
	}
	fmt.Println(res.Message)
	return 0
}

func connectDatabase(ctx context.Context, db config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(db.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(db.MaxConns)
	poolConfig.MinConns = int32(db.MinConns)
	poolConfig.MaxConnLifetime = db.MaxConnLifetime
	poolConfig.MaxConnIdleTime = db.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	if u, err := url.Parse(db.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}

func newWorkbookClient(cfg *config.Config, awsCfg aws.Config) (workbook.Client, error) {
	if cfg.Workbook.Backend == "memory" {
		m, err := workbook.LoadFixture(cfg.Workbook.FixturePath, cfg.Workbook.ID, cfg.Workbook.PageSize)
		if err != nil {
			return nil, err
		}
		slog.Warn("using in-memory workbook fixture", "path", cfg.Workbook.FixturePath)
		return m, nil
	}

	opts := []workbook.HoneycodeOption{workbook.WithPageSize(cfg.Workbook.PageSize)}
	if cfg.Workbook.Endpoint != "" {
		opts = append(opts, workbook.WithEndpoint(cfg.Workbook.Endpoint))
	}
	return workbook.NewHoneycodeClient(awsCfg.Credentials, cfg.Workbook.Region, opts...), nil
}

func newKV(ctx context.Context, cfg *config.Config, awsCfg aws.Config, pool *pgxpool.Pool) (sink.KV, error) {
	switch cfg.KV.Backend {
	case "postgres":
		kv := sink.NewPostgresKV(pool)
		if err := kv.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return kv, nil
	case "memory":
		slog.Warn("using in-memory key-value sink; records are lost on restart")
		return sink.NewMemoryKV(), nil
	default:
		client := sink.NewDynamoClient(awsCfg, cfg.KV.Endpoint)
		return sink.NewDynamoKV(client, cfg.KV.Table, cfg.KV.PartitionKey), nil
	}
}

func newArchive(cfg *config.Config, awsCfg aws.Config) sink.Archive {
	if cfg.Archive.Backend == "memory" {
		slog.Warn("using in-memory archive; exported files are lost on restart")
		return sink.NewMemoryArchive(cfg.Archive.Bucket)
	}
	client := sink.NewS3Client(awsCfg, cfg.Archive.Endpoint, cfg.Archive.UsePathStyle)
	return sink.NewS3Archive(client, cfg.Archive.Bucket)
}
