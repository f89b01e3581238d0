package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/logship/logship/internal/core/domain"
)

var resetConfirmed bool

var resetStateCmd = &cobra.Command{
	Use:   "reset-state",
	Short: "Reset the persisted upload state to empty",
	Long:  `Resets the upload state to the zero value. Previously uploaded records will be re-sent on the next run; the sink's insert-key deduplication is then the only guard against duplicate rows.`,
	Run:   runResetState,
}

func init() {
	resetStateCmd.Flags().BoolVar(&resetConfirmed, "yes", false, "confirm the reset")
	rootCmd.AddCommand(resetStateCmd)
}

func runResetState(cmd *cobra.Command, args []string) {
	if !resetConfirmed {
		fmt.Println("Refusing to reset upload state without --yes")
		os.Exit(1)
	}

	cfg := loadConfig()
	ctx := context.Background()

	store, stateKey, closeStore, err := newStore(cfg)
	if err != nil {
		slog.Error("Failed to open state store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	if err := store.Save(ctx, stateKey, domain.NewUploadState()); err != nil {
		slog.Error("Failed to reset upload state", "error", err)
		os.Exit(1)
	}

	slog.Info("Upload state reset", "key", stateKey)
}
