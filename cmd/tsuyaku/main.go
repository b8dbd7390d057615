package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	audioimpl "github.com/foxseedlab/tsuyaku/external/audio"
	configloader "github.com/foxseedlab/tsuyaku/external/config"
	discordimpl "github.com/foxseedlab/tsuyaku/external/discord"
	repositoryimpl "github.com/foxseedlab/tsuyaku/external/repository"
	sinkimpl "github.com/foxseedlab/tsuyaku/external/sink"
	transcriberimpl "github.com/foxseedlab/tsuyaku/external/transcriber"
	translatorimpl "github.com/foxseedlab/tsuyaku/external/translator"
	webhookimpl "github.com/foxseedlab/tsuyaku/external/webhook"
	"github.com/foxseedlab/tsuyaku/internal/audio"
	"github.com/foxseedlab/tsuyaku/internal/config"
	"github.com/foxseedlab/tsuyaku/internal/discord"
	"github.com/foxseedlab/tsuyaku/internal/session"
	"github.com/foxseedlab/tsuyaku/internal/sink"
	"github.com/foxseedlab/tsuyaku/internal/translator"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
)

const discordConnectTimeout = 20 * time.Second

var rootCmd = &cobra.Command{
	Use:   "tsuyaku",
	Short: "Live transcription and translation of an audio input",
	Long:  `Captures audio, streams it to the speech recognizer and translates every finalized utterance of the primary channel until interrupted or the input ends.`,
	RunE:  runSession,
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio capture devices",
	RunE:  listDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
	rootCmd.SilenceUsage = true
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSession(cmd *cobra.Command, _ []string) error {
	slog.Info("startup: loading configuration")
	cfg, err := configloader.Load()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		return err
	}
	initLogger(cfg)
	slog.Info("startup: configuration loaded", "env", cfg.Env, "direction", cfg.SourceLanguage+"-"+cfg.TargetLanguage, "mode", cfg.TranslateMode)

	slog.Info("startup: building dependency graph")
	injector := setupDI(cfg)

	dc, err := do.Invoke[discord.Client](injector)
	if err != nil {
		slog.Error("failed to resolve discord client", "error", err)
		return err
	}
	out, err := do.Invoke[*sink.Fanout](injector)
	if err != nil {
		slog.Error("failed to resolve segment sinks", "error", err)
		return err
	}
	defer func() {
		if err := out.Close(); err != nil {
			slog.Error("failed to close segment sinks", "error", err)
		}
	}()
	dispatcher, err := do.Invoke[*translator.Dispatcher](injector)
	if err != nil {
		slog.Error("failed to resolve translation backends", "error", err)
		return err
	}
	defer func() {
		if err := dispatcher.Close(); err != nil {
			slog.Error("failed to close translation backends", "error", err)
		}
	}()
	manager, err := do.Invoke[*session.Manager](injector)
	if err != nil {
		slog.Error("failed to resolve session manager", "error", err)
		return err
	}

	connectCtx, cancelConnect := context.WithTimeout(cmd.Context(), discordConnectTimeout)
	defer cancelConnect()
	if err := dc.Connect(connectCtx); err != nil {
		slog.Error("discord connect failed", "error", err)
		return err
	}
	defer func() {
		if err := dc.Close(); err != nil {
			slog.Error("discord close failed", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go handleSignals(ctx, manager, cancel)

	res, err := manager.Run(ctx)
	slog.Info("session finished",
		"state", res.State.String(),
		"segments", res.Segments,
		"frames_sent", res.FramesSent,
		"frames_dropped", res.FramesDropped,
		"average_latency_ms", res.Latency.AverageLatency.Milliseconds())
	return err
}

// handleSignals stops the session gracefully on the first signal and aborts
// it on the second.
func handleSignals(ctx context.Context, manager *session.Manager, cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-sigCh:
		slog.Info("shutting down; press Ctrl+C again to abort")
		manager.Stop()
	case <-ctx.Done():
		return
	}
	select {
	case <-sigCh:
		slog.Warn("aborting session")
		cancel()
	case <-ctx.Done():
	}
}

func listDevices(cmd *cobra.Command, _ []string) error {
	lister, ok := audioimpl.NewPortAudioDevice().(audio.Lister)
	if !ok {
		return fmt.Errorf("audio device listing is not supported")
	}
	devices, err := lister.ListDevices()
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	for _, d := range devices {
		marker := " "
		if d.IsDefault {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %3d  %-40s  %-12s  in:%d  %.0fHz\n", marker, d.Index, d.Name, d.HostAPI, d.MaxInputChannels, d.DefaultSampleRate)
	}
	return nil
}

func initLogger(cfg *config.Config) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	repositoryimpl.RegisterDI(injector)
	audioimpl.RegisterDI(injector)
	discordimpl.RegisterDI(injector)
	transcriberimpl.RegisterDI(injector)
	translatorimpl.RegisterDI(injector)
	webhookimpl.RegisterDI(injector)
	sinkimpl.RegisterDI(injector)
	session.RegisterDI(injector)

	return injector
}
