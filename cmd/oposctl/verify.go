package main

import (
	"time"

	"oposiciones/queries"

	"github.com/spf13/cobra"
)

var verifyLaw string

var verifyCmd = &cobra.Command{
	Use:   "verify [--law slug]",
	Short: "Queue question verifications and process them synchronously",
	Long:  "With --law every active question of the law is queued first; without it only due verifications are drained.",
	RunE: func(cmd *cobra.Command, args []string) error {
		enqueued := 0
		if verifyLaw != "" {
			law, err := queries.LawBySlug(cmd.Context(), env, verifyLaw)
			if err != nil {
				return err
			}
			if enqueued, err = queries.EnqueueLawVerifications(database, law.ID, time.Now().UTC()); err != nil {
				return err
			}
		}
		processed, err := queries.DrainVerifications(cmd.Context(), env, conf.Workers.VerificationBatch)
		printResult(map[string]int{"enqueued": enqueued, "processed": processed},
			"enqueued %d, processed %d verifications", enqueued, processed)
		return err
	},
}

func init() {
	verifyCmd.Flags().StringVar(&verifyLaw, "law", "", "slug of the law whose questions are queued")
}
