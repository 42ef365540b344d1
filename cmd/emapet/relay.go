package main

import (
	"github.com/koscakluka/ema-pet/core/llms/claudecli"
	"github.com/koscakluka/ema-pet/internal/config"
	"github.com/koscakluka/ema-pet/internal/relay"
	"github.com/spf13/cobra"
)

func newRelayCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Serve /ask and /monologue with the claude command line tool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := setupLogging(cfg, cmd.ErrOrStderr()); err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.RelayAddr()
			}

			return newRelayServer(addr, cfg.Relay).ListenAndServe(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from relay.address and relay.port)")
	return cmd
}

// newRelayServer answers /ask with the configured persona and tools, and
// /monologue with the same model and no tools.
func newRelayServer(addr string, cfg config.RelayConfig) *relay.Server {
	ask := claudecli.NewClient(
		claudecli.WithBinary(cfg.Binary),
		claudecli.WithModel(cfg.Model),
		claudecli.WithEffort(cfg.Effort),
		claudecli.WithSystemPrompt(cfg.SystemPrompt),
		claudecli.WithAllowedTools(cfg.AllowedTools),
	)
	monologue := claudecli.NewClient(
		claudecli.WithBinary(cfg.Binary),
		claudecli.WithModel(cfg.Model),
		claudecli.WithEffort(cfg.Effort),
		claudecli.WithSystemPrompt(cfg.SystemPrompt),
		claudecli.WithAllowedTools([]string{}),
	)

	return relay.NewServer(addr, ask,
		relay.WithMonologueClient(monologue),
		relay.WithTimeout(cfg.Timeout),
	)
}
