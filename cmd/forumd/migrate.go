package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"forum_go/internal/core/config"
	"forum_go/internal/core/database"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down]",
	Short:     "Apply or roll back schema migrations",
	Long:      "up applies every pending migration (default); down rolls back the last one.",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"up", "down"},
	RunE:      runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	direction := "up"
	if len(args) > 0 {
		direction = args[0]
	}

	conn, err := database.Open(&config.Get().Database)
	if err != nil {
		return err
	}
	defer conn.Close()

	switch direction {
	case "up":
		err = database.Migrate(conn)
	case "down":
		err = database.MigrateDown(conn)
	default:
		return fmt.Errorf("unknown direction %q, want up or down", direction)
	}
	if err != nil {
		return err
	}
	cmd.Printf("migrate %s: done\n", direction)
	return nil
}
