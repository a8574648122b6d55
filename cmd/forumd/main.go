package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"forum_go/internal/core/config"
	"forum_go/internal/core/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "forumd",
	Short: "Forum backend: threads, replies, tags and search",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := config.Init(configPath); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := logger.Init(&config.Get().Logging); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		logger.Sync()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "directory holding config.yaml")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
