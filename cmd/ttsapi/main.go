package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/ekisa-team/ttsapi/internal/backend"
	"github.com/ekisa-team/ttsapi/internal/backend/tfts"
	"github.com/ekisa-team/ttsapi/internal/config"
	"github.com/ekisa-team/ttsapi/internal/config/source"
	"github.com/ekisa-team/ttsapi/internal/env"
	"github.com/ekisa-team/ttsapi/internal/logger"
	"github.com/ekisa-team/ttsapi/internal/metrics"
	"github.com/ekisa-team/ttsapi/internal/model"
	grpcserver "github.com/ekisa-team/ttsapi/internal/server/grpc"
	httpserver "github.com/ekisa-team/ttsapi/internal/server/http"
	"github.com/ekisa-team/ttsapi/internal/service"
	"github.com/ekisa-team/ttsapi/internal/xfs"
)

var version = "dev"

type flags struct {
	httpPort       int
	grpcPort       int
	configPath     string
	schemaPath     string
	filesystemRoot string
	logFile        string
}

func main() {
	var f flags
	flag.IntVar(&f.httpPort, "http-port", config.DefaultHTTPPort(), "HTTP port to listen on")
	flag.IntVar(&f.grpcPort, "grpc-port", config.DefaultGRPCPort(), "GRPC port to listen on")
	flag.StringVar(&f.configPath, "config", filepath.Join(config.DefaultConfigPath(), "config.yaml"), "Path to config file")
	flag.StringVar(&f.schemaPath, "schema", "", "Path to schema file (embedded schema when empty)")
	flag.StringVar(&f.filesystemRoot, "filesystem-root", config.DefaultFilesystemRoot(), "Root of the model store")
	flag.StringVar(&f.logFile, "log-file", "logs/ttsapi.log", "Path to the log file")
	flag.Parse()

	environment := env.FromEnv()

	slog.SetDefault(
		logger.New(environment,
			logger.WithLogToFile(true),
			logger.WithLogFile(f.logFile),
		),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, f); err != nil {
		slog.Error("ttsapi stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, f flags) error {
	cfg, watch, err := loadConfig(f)
	if err != nil {
		return err
	}

	layout := xfs.NewLayout(cfg.Storage.FilesystemRoot)
	if err := layout.Init(); err != nil {
		return err
	}

	servers := backend.NewServerManager()
	defer servers.StopAll()

	downloader := newDownloader()
	engine, err := startEngine(ctx, cfg.Engine, cfg.Storage.ModelsDir, downloader, servers)
	if err != nil {
		return err
	}

	var managerOpts []model.ManagerOption
	if downloader != nil {
		managerOpts = append(managerOpts, model.WithDownloader(downloader, cfg.Storage.ModelsDir))
	}

	synth := model.NewSynthesizer(engine)
	manager := model.NewManager(synth, managerOpts...)
	if err := manager.LoadModelsFromConfig(ctx, cfg); err != nil {
		slog.Error("Failed to load models from config", "error", err)
	}

	if watch {
		if err := watchConfig(ctx, f, manager); err != nil {
			return err
		}
	}

	m := metrics.New()
	httpSrv := httpserver.New(httpserver.Options{
		Addr:    net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.HTTPPort)),
		Version: version,
		Synth:   synth,
		TTS:     service.NewTTS(synth, layout.Jobs(), cfg.Models.Defaults, m),
		Store:   service.NewModelStore(layout),
		Metrics: m,
	})
	grpcSrv := grpcserver.New(net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.GRPCPort)))

	errCh := make(chan error, 2)
	go func() { errCh <- httpSrv.Start() }()
	go func() { errCh <- grpcSrv.Start() }()
	grpcSrv.SetServing(true)

	slog.Info("ttsapi started",
		"version", version,
		"env", env.FromEnv(),
		"http_port", cfg.Server.HTTPPort,
		"grpc_port", cfg.Server.GRPCPort,
		"filesystem_root", layout.Root)

	var serveErr error
	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case serveErr = <-errCh:
	}

	grpcSrv.SetServing(false)
	if err := httpSrv.Stop(context.Background()); err != nil {
		slog.Warn("HTTP shutdown incomplete", "error", err)
	}
	grpcSrv.Stop()

	return serveErr
}

// loadConfig reads the config file. A missing file falls back to defaults and
// disables watching. Explicit flags override file values.
func loadConfig(f flags) (*config.Config, bool, error) {
	var (
		cfg   *config.Config
		watch bool
	)

	if _, err := os.Stat(f.configPath); errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Config file not found, using defaults", "config", f.configPath)
		cfg = config.Default()
	} else {
		if cfg, err = config.LoadAndValidate(f.configPath, f.schemaPath); err != nil {
			return nil, false, err
		}
		watch = true
		slog.Info("Config loaded successfully", "config", f.configPath, "schema", f.schemaPath)
	}

	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "http-port":
			cfg.Server.HTTPPort = f.httpPort
		case "grpc-port":
			cfg.Server.GRPCPort = f.grpcPort
		case "filesystem-root":
			cfg.Storage.FilesystemRoot = f.filesystemRoot
		}
	})

	return cfg, watch, nil
}

// watchConfig applies the models section of every config change until ctx is done.
// Server, storage and engine settings only take effect on restart.
func watchConfig(ctx context.Context, f flags, manager *model.Manager) error {
	_, err := config.NewWatcher(ctx, f.configPath, f.schemaPath, func(cfg *config.Config, err error) {
		if err != nil {
			slog.Error("Failed to reload config", "error", err)
			return
		}

		if err := manager.LoadModelsFromConfig(ctx, cfg); err != nil {
			slog.Error("Failed to load models from config", "error", err)
			return
		}
		slog.Info("Models reloaded from config", "config", f.configPath)
	})
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	return nil
}

// startEngine launches the bridge when a binary is configured and returns the
// model loader talking to it.
func startEngine(ctx context.Context, cfg config.EngineConfig, modelsDir string, downloader tfts.Downloader, servers *backend.ServerManager) (*tfts.Engine, error) {
	client := tfts.NewClient(cfg.URL, cfg.RequestTimeout)

	if cfg.BinPath != "" {
		if err := servers.StartServer(ctx, tfts.ServerConfig(cfg)); err != nil {
			return nil, fmt.Errorf("failed to start inference bridge: %w", err)
		}
	} else if err := client.Health(ctx); err != nil {
		slog.Warn("Inference bridge not reachable, models will fail to load until it is up", "url", cfg.URL, "error", err)
	}

	return tfts.NewEngine(client, downloader, modelsDir), nil
}

// newDownloader returns the Hugging Face downloader, or nil when the CLI is missing.
func newDownloader() tfts.Downloader {
	d, err := source.NewHuggingFaceDownloader()
	if err != nil {
		slog.Warn("Hugging Face CLI not found, only local model paths can be loaded", "error", err)
		return nil
	}
	return d
}
