// Command oposctl runs the batch jobs (cron) and maintenance tasks of the service.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"oposiciones/bootstrap"
	"oposiciones/config"
	"oposiciones/db"
	"oposiciones/logger"
	"oposiciones/queries"

	"github.com/jinzhu/gorm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	jsonOutput bool

	conf     config.Configuration
	database *gorm.DB
	env      queries.Env
	closeEnv = func() {}
)

var rootCmd = &cobra.Command{
	Use:           "oposctl <command>",
	Short:         "Batch jobs and maintenance for the oposiciones backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		conf, err = config.Load(configPath)
		if err != nil {
			return err
		}
		zl, err := logger.New(conf.LogLevel, conf.DevMode)
		if err != nil {
			return err
		}
		logger.Set(zl)

		db.SetConfigurations(conf)
		database, err = db.Connect()
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		env, closeEnv, err = bootstrap.NewEnv(cmd.Context(), conf, database, zl)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if closeEnv != nil {
			closeEnv()
		}
		if database != nil {
			database.Close()
		}
		_ = logger.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "path to the JSON configuration")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(boeSyncCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(remindersCmd)
}

func defaultConfigPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "config.json"
}

// printResult writes v as indented JSON with --json, or the text line otherwise.
func printResult(v any, text string, args ...any) {
	if jsonOutput {
		b, _ := json.MarshalIndent(v, "", "  ")
		fmt.Println(string(b))
		return
	}
	fmt.Printf(text+"\n", args...)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.L().Error("command failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
