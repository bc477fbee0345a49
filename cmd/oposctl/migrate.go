package main

import (
	"fmt"
	"strconv"

	"oposiciones/db"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate up|down [n]",
	Short:     "Apply or roll back schema migrations",
	Long:      "On postgres the embedded SQL migrations are applied; sqlite databases are auto-migrated from the models.",
	Args:      cobra.RangeArgs(1, 2),
	ValidArgs: []string{"up", "down"},
	RunE: func(cmd *cobra.Command, args []string) error {
		steps, err := parseSteps(args[1:])
		if err != nil {
			return err
		}
		if !db.IsPostgres(conf.Database) {
			if args[0] != "up" {
				return fmt.Errorf("migrate down is only supported on postgres")
			}
			if err := db.AutoMigrate(database); err != nil {
				return err
			}
			printResult(map[string]string{"status": "automigrated"}, "sqlite schema auto-migrated")
			return nil
		}

		switch args[0] {
		case "up":
			err = db.MigrateUp(database, steps)
		case "down":
			err = db.MigrateDown(database, steps)
		default:
			return fmt.Errorf("unknown direction %q (must be up or down)", args[0])
		}
		if err != nil {
			return err
		}
		version, dirty, err := db.MigrationVersion(database)
		if err != nil {
			return err
		}
		printResult(map[string]any{"version": version, "dirty": dirty}, "schema at version %d (dirty=%v)", version, dirty)
		return nil
	},
}

// parseSteps reads the optional step count. Missing means every migration.
func parseSteps(args []string) (int, error) {
	if len(args) == 0 {
		return 0, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid step count %q", args[0])
	}
	return n, nil
}
