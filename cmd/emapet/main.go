package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/koscakluka/ema-pet/internal/config"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "emapet",
		Short: "A small voice companion for the terminal",
		Long: `emapet listens, thinks and talks back. It keeps the conversation
between runs and now and then mutters to itself or leaves a mess to clean.

Run without arguments to start the companion.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd.Context())
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: search ./emapet.yaml, ~/.config/emapet, /etc/emapet)")

	root.AddCommand(
		newChatCmd(),
		newRelayCmd(),
		newConfigCmd(),
		newHistoryCmd(),
	)
	return root
}

// loadConfig returns the config file path (empty when running on
// defaults) and its contents.
func loadConfig() (string, *config.Config, error) {
	path, err := config.FindConfig(configPath)
	if err != nil {
		return "", nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return "", nil, err
	}
	return path, cfg, nil
}
