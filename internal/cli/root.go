package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/logship/logship/internal/core/config"
	"github.com/logship/logship/internal/core/dedup"
	"github.com/logship/logship/internal/core/domain"
	"github.com/logship/logship/internal/infra/logsource"
	"github.com/logship/logship/internal/infra/sink"
	"github.com/logship/logship/internal/infra/state"
	"github.com/logship/logship/internal/upload"
)

var (
	cfgPath string
	isDebug bool
	dryRun  bool
	logDir  string
)

var rootCmd = &cobra.Command{
	Use:   "logship",
	Short: "Ship structured log records to a columnar sink",
	Long:  `logship discovers .jsonl log files, deduplicates against persisted upload state, and ships the records to a remote columnar sink in resilient batches.`,
	Run:   runUpload,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "logship.yaml", "config file (default is logship.yaml)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would upload without sending anything")
	rootCmd.Flags().StringVar(&logDir, "log-dir", "", "override the configured log directory")
}

func initLogging(cfg *config.AppConfig) {
	level := slog.LevelInfo
	if isDebug || cfg.Logging.Level == "debug" {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	})))
}

func loadConfig() *config.AppConfig {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	initLogging(cfg)

	return cfg
}

// newStore builds the configured state store. The returned func releases any
// held connection.
func newStore(cfg *config.AppConfig) (state.Store, string, func(), error) {
	switch cfg.State.Kind {
	case "redis":
		rs, err := state.NewRedisStore(cfg.State.Redis)
		if err != nil {
			return nil, "", nil, err
		}
		return rs, cfg.State.Key, func() { _ = rs.Close() }, nil
	case "file", "":
		return state.NewFileStore(), cfg.State.Path, func() {}, nil
	default:
		return nil, "", nil, fmt.Errorf("unknown state store kind %q", cfg.State.Kind)
	}
}

func newFactory(cfg *config.AppConfig) (sink.Factory, error) {
	switch cfg.Sink.Kind {
	case "http", "":
		return sink.NewHTTPFactory(cfg.Sink.HTTP), nil
	case "postgres":
		return sink.NewPostgresFactory(cfg.Sink.Postgres), nil
	default:
		return nil, fmt.Errorf("unknown sink kind %q", cfg.Sink.Kind)
	}
}

func runUpload(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	ctx := context.Background()

	dir := cfg.Logs.Dir
	if logDir != "" {
		dir = logDir
	}

	files, err := logsource.Discover(dir)
	if err != nil {
		slog.Error("Failed to discover log files", "error", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		slog.Info("No log files to process", "dir", dir)
		return
	}

	batchID := uuid.New().String()
	parser := logsource.NewParser(
		cfg.Uploader.UploaderID, cfg.Uploader.ProjectName, batchID)

	records, err := parser.ParseAll(files)
	if err != nil {
		slog.Error("Failed to parse log files", "error", err)
		os.Exit(1)
	}
	slog.Info("Parsed records", "records", len(records), "files", len(files))

	store, stateKey, closeStore, err := newStore(cfg)
	if err != nil {
		slog.Error("Failed to open state store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	if dryRun || cfg.Upload.DryRun {
		runDryRun(ctx, cfg, store, stateKey, records)
		return
	}

	factory, err := newFactory(cfg)
	if err != nil {
		slog.Error("Failed to build sink factory", "error", err)
		os.Exit(1)
	}

	uploader := upload.NewUploader(
		cfg.Sink.Destination, cfg.Upload.BatchSize, cfg.Upload.Limits())
	orch := upload.NewOrchestrator(
		uploader, store, stateKey, cfg.Upload.EnableDeduplication)

	summary, err := orch.Run(ctx, records, factory, batchID)
	if err != nil {
		slog.Error("Upload failed", "error", err)
		os.Exit(1)
	}

	slog.Info("Upload complete",
		"uploaded", summary.UploadedCount,
		"failed", summary.FailedCount,
		"batch_id", batchID)
}

func runDryRun(
	ctx context.Context,
	cfg *config.AppConfig,
	store state.Store,
	stateKey string,
	records []domain.Record,
) {
	st, err := store.Load(ctx, stateKey)
	if err != nil {
		slog.Error("Failed to load upload state", "error", err)
		os.Exit(1)
	}

	pending := dedup.Filter(records, st.UploadedIDs, cfg.Upload.EnableDeduplication)

	slog.Info("DRY RUN - nothing will be uploaded",
		"candidates", len(records), "would_upload", len(pending))
	for _, r := range pending {
		slog.Info("Would upload",
			"uuid", r.ID, "session", r.SessionID, "type", r.Kind)
	}
}
