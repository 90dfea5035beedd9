package commands

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aisdata/aisup/internal/cli/output"
	"github.com/aisdata/aisup/internal/ledger"
	"github.com/aisdata/aisup/internal/scanner"
	"github.com/aisdata/aisup/internal/transfer"
	"github.com/aisdata/aisup/internal/uploader"
)

var (
	uploadFlags    storeFlags
	uploadMaxFiles int
	uploadResume   bool
)

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload archives to the bucket",
	Long: `Scan the base directory and upload every archive not yet recorded in the
progress ledger. Files above the multipart threshold are transferred as
concurrent multipart sessions; an interrupted run resumes from the ledger.

Examples:
  # Upload everything pending
  aisup upload --base-path /data/ais --bucket ais-archive

  # Limit a run to the first 50 pending files
  aisup upload -p /data/ais -b ais-archive --max-files 50`,
	RunE: runUpload,
}

func init() {
	addStoreFlags(uploadCmd, &uploadFlags)
	uploadCmd.Flags().IntVar(&uploadMaxFiles, "max-files", 0, "maximum number of files to upload (0 = no limit)")
	uploadCmd.Flags().BoolVar(&uploadResume, "resume", false, "resume a previous session (every run resumes from the ledger; this only labels the run)")
}

func runUpload(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(&uploadFlags)
	if err != nil {
		return err
	}
	if err := requireBasePath(cfg); err != nil {
		return err
	}
	log := newLogger(cfg)

	// Ctrl+C stops dispatching new files; in-flight parts drain and open
	// multipart sessions are aborted remotely before exit.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if uploadResume {
		log.Info().Msg("resuming upload from previous session")
	}

	files, err := scanner.New(cfg.BasePath, cfg.ArchiveExt).Scan()
	if err != nil {
		return err
	}
	log.Info().Int("files", len(files)).Str("base_path", cfg.BasePath).Msg("scan complete")

	client, err := connect(ctx, cfg)
	if err != nil {
		return err
	}

	led := ledger.Open(cfg.LedgerPath, log)
	coord := uploader.New(client, led, cfg.Bucket,
		uploader.WithMultipartThreshold(cfg.MultipartThreshold()),
		uploader.WithPartSize(cfg.PartSize()),
		uploader.WithConcurrency(cfg.MaxConcurrentParts),
		uploader.WithTracker(transfer.LogTracker{Log: log}),
		uploader.WithLogger(log),
	)

	res, runErr := coord.Run(ctx, files, uploadMaxFiles)

	output.KeyValue(cmd.OutOrStdout(), [][2]string{
		{"Total files", output.Count(res.Total)},
		{"Uploaded", output.Count(res.Uploaded)},
		{"Failed", output.Count(res.Failed)},
		{"Skipped", output.Count(res.Skipped)},
	})

	switch {
	case runErr != nil:
		// Interrupted: the tally above reflects work completed so far.
		return runErr
	case res.Failed > 0:
		log.Warn().Int("failed", res.Failed).Msg("some files failed to upload; rerun to retry")
	case res.Uploaded > 0:
		log.Info().Msg("upload completed")
	}
	return nil
}
