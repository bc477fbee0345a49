package main

import (
	"oposiciones/queries"

	"github.com/spf13/cobra"
)

var remindersCmd = &cobra.Command{
	Use:   "reminders",
	Short: "Email a study reminder to users inactive for a week",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sent, failed, err := queries.SendReminders(cmd.Context(), env)
		printResult(map[string]int{"sent": sent, "failed": failed}, "reminders sent=%d failed=%d", sent, failed)
		return err
	},
}
