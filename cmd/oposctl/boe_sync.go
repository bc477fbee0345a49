package main

import (
	"fmt"

	"oposiciones/models"
	"oposiciones/queries"

	"github.com/spf13/cobra"
)

var (
	syncLaw string
	syncAll bool
)

var boeSyncCmd = &cobra.Command{
	Use:   "boe-sync [--law slug | --all]",
	Short: "Download consolidated texts from the BOE and apply article changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		if (syncLaw == "") == !syncAll {
			return fmt.Errorf("pass exactly one of --law or --all")
		}
		var laws []models.Law
		if syncAll {
			var err error
			if laws, err = queries.SyncableLaws(database); err != nil {
				return err
			}
		} else {
			law, err := queries.LawBySlug(cmd.Context(), env, syncLaw)
			if err != nil {
				return err
			}
			laws = []models.Law{law}
		}

		reports, err := queries.SyncLaws(cmd.Context(), env, laws)
		for _, r := range reports {
			if !jsonOutput {
				fmt.Printf("%-20s fetched=%d unchanged=%d new=%d modified=%d removed=%d verifications=%d\n",
					r.LawSlug, r.Fetched, r.Unchanged, len(r.New), len(r.Modified), len(r.Removed), r.Enqueued)
			}
		}
		if jsonOutput {
			printResult(reports, "")
		}
		return err
	},
}

func init() {
	boeSyncCmd.Flags().StringVar(&syncLaw, "law", "", "slug of the law to sync")
	boeSyncCmd.Flags().BoolVar(&syncAll, "all", false, "sync every law with a BOE id")
}
