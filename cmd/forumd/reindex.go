package main

import (
	"time"

	"github.com/spf13/cobra"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild every search document from the database",
	RunE:  runReindex,
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}

func runReindex(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	start := time.Now()
	indexed, failed, err := a.forum.Reindex(cmd.Context())
	if err != nil {
		return err
	}
	cmd.Printf("reindexed %d documents into %s (%d failed) in %s\n",
		indexed, a.index.Name(), failed, time.Since(start).Round(time.Millisecond))
	return nil
}
