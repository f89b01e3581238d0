package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the persisted upload state",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	ctx := context.Background()

	store, stateKey, closeStore, err := newStore(cfg)
	if err != nil {
		slog.Error("Failed to open state store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	st, err := store.Load(ctx, stateKey)
	if err != nil {
		slog.Error("Failed to load upload state", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "State key:\t%s\n", stateKey)
	fmt.Fprintf(w, "Total uploaded:\t%d\n", st.TotalUploaded)
	fmt.Fprintf(w, "Known ids:\t%d\n", len(st.UploadedIDs))
	if st.LastBatchID != nil {
		fmt.Fprintf(w, "Last batch:\t%s\n", *st.LastBatchID)
	} else {
		fmt.Fprintf(w, "Last batch:\t-\n")
	}
	if st.LastUploadTimestamp != nil {
		fmt.Fprintf(w, "Last upload:\t%s\n", st.LastUploadTimestamp.Format("2006-01-02 15:04:05 MST"))
	} else {
		fmt.Fprintf(w, "Last upload:\t-\n")
	}
	_ = w.Flush()
}
