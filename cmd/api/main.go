package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/denisok6893-rgb/rental-matching/internal/config"
	"github.com/denisok6893-rgb/rental-matching/internal/logger"
)

const serviceName = "rental-matching"

var (
	cfgFile string
	v       = viper.New()
	cfg     config.Config
	zlog    = zap.NewNop()

	rootCmd = &cobra.Command{
		Use:   "rental-api",
		Short: "Tenant preference to property matching service",
		Long: `rental-api scores rental listings against a tenant's saved preferences,
serves the results over HTTP and ships a few maintenance commands.`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "json", "log format (console, json)")
	rootCmd.PersistentFlags().String("db", "data/rental.db", "SQLite database path")
	rootCmd.PersistentFlags().String("weights", "", "weights file (YAML or JSON); defaults when empty")

	_ = v.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = v.BindPFlag("database.path", rootCmd.PersistentFlags().Lookup("db"))
	_ = v.BindPFlag("matching.weights_path", rootCmd.PersistentFlags().Lookup("weights"))

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(matchCmd())
	rootCmd.AddCommand(completenessCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	_ = zlog.Sync()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	loaded, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	cfg = loaded

	l, err := logger.New(cfg.Logging.Level, cfg.Logging.Format, serviceName)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	zlog = l
	return nil
}
