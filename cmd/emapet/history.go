package main

import (
	"fmt"

	"github.com/koscakluka/ema-pet/core/history"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show or clear the saved conversation",
	}

	var last int
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the saved conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, closer, err := openHistory(cfg)
			if err != nil {
				return err
			}
			defer closer.Close()

			turns := store.Turns()
			if last > 0 {
				turns = store.Recent(last)
			}
			for _, turn := range turns {
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", speaker(turn.Role), turn.Text); err != nil {
					return err
				}
			}
			return nil
		},
	}
	showCmd.Flags().IntVarP(&last, "last", "n", 0, "only print the last n turns")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the saved conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, closer, err := openHistory(cfg)
			if err != nil {
				return err
			}
			defer closer.Close()

			count := store.Len()
			store.Clear()
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "cleared %d turns\n", count)
			return err
		},
	}

	cmd.AddCommand(showCmd, clearCmd)
	return cmd
}

func speaker(role history.Role) string {
	switch role {
	case history.RoleUser:
		return "You"
	case history.RoleAssistant:
		return "Ema"
	default:
		return "System"
	}
}
