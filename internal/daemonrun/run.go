package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"voicequeue/internal/config"
	"voicequeue/internal/daemon"
	"voicequeue/internal/ipc"
	"voicequeue/internal/logging"
	"voicequeue/internal/notifications"
	"voicequeue/internal/store"
	"voicequeue/internal/ttsclient"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
}

// Run starts the voicequeue daemon and blocks until a signal arrives or a
// client requests shutdown over IPC.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		cfg.Logging.Level = level
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logRuntimeSnapshot(logger, cfg)

	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open state store", logging.Error(err))
		return err
	}

	backend, err := ttsclient.New(cfg)
	if err != nil {
		_ = st.Close()
		logger.Error("connect tts backend", logging.Error(err),
			logging.String(logging.FieldErrorHint, "check [backend] url or nats_url in the config file"))
		return err
	}

	d, err := daemon.New(cfg, daemon.Deps{
		Store:    st,
		Backend:  backend,
		Notifier: notifications.NewService(cfg),
		Logger:   logger,
	})
	if err != nil {
		_ = backend.Close()
		_ = st.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.WarnWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check for another running daemon and database access"),
			logging.String(logging.FieldImpact, "daemon exits without serving requests"),
		)
		return err
	}

	ipcServer, err := ipc.NewServer(signalCtx, cfg.Paths.SocketPath, d, logger, cancel)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	<-signalCtx.Done()
	logger.Info("voicequeue daemon shutting down",
		logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logRuntimeSnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	logger.Info("runtime snapshot",
		logging.String(logging.FieldEventType, "runtime_snapshot"),
		logging.String("transport", cfg.Backend.Transport),
		logging.String("data_dir", cfg.Paths.DataDir),
		logging.String("output_dir", cfg.Paths.OutputDir),
		logging.String("socket", cfg.Paths.SocketPath),
		logging.String("api_bind", cfg.Paths.APIBind),
		logging.Bool("api_token_set", strings.TrimSpace(cfg.Paths.APIToken) != ""),
		logging.Bool("default_voice_set", strings.TrimSpace(cfg.Voice.DefaultVoiceID) != ""),
		logging.String("policy", cfg.Orchestrator.Policy),
		logging.Int("concurrency", cfg.Orchestrator.Concurrency),
		logging.Bool("ntfy_enabled", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
		logging.Bool("desktop_notifications", cfg.Notifications.Desktop),
	)
}
