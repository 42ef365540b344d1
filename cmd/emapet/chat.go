package main

import (
	"context"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	orchestration "github.com/koscakluka/ema-pet/core"
	"github.com/koscakluka/ema-pet/core/ambient"
	"github.com/koscakluka/ema-pet/core/history"
	"github.com/koscakluka/ema-pet/internal/config"
	"github.com/koscakluka/ema-pet/internal/mqtt"
	"github.com/koscakluka/ema-pet/internal/ui"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start the companion (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd.Context())
		},
	}
}

func runChat(ctx context.Context) error {
	path, cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logFile, err := openLogFile(cfg)
	if err != nil {
		return err
	}
	defer logFile.Close()
	if err := setupLogging(cfg, logFile); err != nil {
		return err
	}
	slog.Info("starting companion", "config", path, "inference", cfg.Inference.Provider)

	store, closeHistory, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer closeHistory.Close()

	ask, remark, err := inferenceClients(cfg.Inference)
	if err != nil {
		return err
	}

	speech := openSpeech(cfg.Speech)
	defer speech.close()

	opts := append(companionOptions(cfg, ask, remark, store), speech.options...)
	companion := orchestration.NewOrchestrator(opts...)
	defer companion.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	notifier := ui.NewNotifier()
	publisher, err := newPublisher(cfg)
	if err != nil {
		return err
	}

	companion.Orchestrate(ctx, companionCallbacks(notifier, publisher)...)
	if publisher != nil {
		initial := companion.Snapshot()
		publisher.SetMode(initial.Mode.String())
		publisher.SetStatus(initial.Status)
		publisher.SetDecorations(len(initial.Decorations))
	}

	reloader := config.NewReloader(path, cfg)
	reloader.OnReload(func(cfg *config.Config) {
		companion.SetHandsFree(cfg.Companion.HandsFree)
		companion.SetPlayback(cfg.Companion.Playback)
	})

	program := tea.NewProgram(ui.New(companion, companion.Snapshot()), tea.WithAltScreen(), tea.WithContext(ctx))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		if _, err := program.Run(); err != nil && ctx.Err() == nil {
			return fmt.Errorf("run ui: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		notifier.Run(gctx, companion.Snapshot, program.Send)
		return nil
	})
	g.Go(func() error {
		return reloader.Watch(gctx)
	})
	if publisher != nil {
		g.Go(func() error {
			return publisher.Start(gctx)
		})
	}

	return g.Wait()
}

func newPublisher(cfg *config.Config) (*mqtt.Publisher, error) {
	if cfg.MQTT.Broker == "" {
		return nil, nil
	}
	instanceID, err := mqtt.LoadOrCreateInstanceID(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	return mqtt.New(cfg.MQTT, instanceID, slog.Default()), nil
}

// companionCallbacks fan state changes out to the UI and, when configured,
// to the MQTT publisher. Both only record the change, so the callbacks do
// not hold up the orchestrator.
func companionCallbacks(notifier *ui.Notifier, publisher *mqtt.Publisher) []orchestration.OrchestrateOption {
	return []orchestration.OrchestrateOption{
		orchestration.WithModeChangeCallback(func(mode orchestration.Mode) {
			if publisher != nil {
				publisher.SetMode(mode.String())
			}
			notifier.Notify()
		}),
		orchestration.WithStatusCallback(func(status string) {
			if publisher != nil {
				publisher.SetStatus(status)
			}
			notifier.Notify()
		}),
		orchestration.WithDecorationsCallback(func(decorations []ambient.Decoration) {
			if publisher != nil {
				publisher.SetDecorations(len(decorations))
			}
			notifier.Notify()
		}),
		orchestration.WithTranscriptCallback(func(string) { notifier.Notify() }),
		orchestration.WithTurnCallback(func(history.Turn) { notifier.Notify() }),
		orchestration.WithHistoryResetCallback(notifier.Notify),
		orchestration.WithSettingsChangeCallback(func(bool, bool) { notifier.Notify() }),
	}
}
