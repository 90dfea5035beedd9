package commands

import (
	"github.com/spf13/cobra"

	"github.com/aisdata/aisup/internal/cli/output"
	"github.com/aisdata/aisup/internal/ledger"
	"github.com/aisdata/aisup/internal/scanner"
)

var infoFlags storeFlags

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show archive tree and upload status side by side",
	Long: `Combine a fresh scan of the archive tree with the ledger's upload records
into a per-period breakdown of total, uploaded and pending files.

Example:
  aisup info --base-path /data/ais`,
	RunE: runInfo,
}

func init() {
	addStoreFlags(infoCmd, &infoFlags)
}

func runInfo(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(&infoFlags)
	if err != nil {
		return err
	}
	if err := requireBasePath(cfg); err != nil {
		return err
	}
	log := newLogger(cfg)

	files, err := scanner.New(cfg.BasePath, cfg.ArchiveExt).Scan()
	if err != nil {
		return err
	}
	led := ledger.Open(cfg.LedgerPath, log)

	type periodKey struct{ year, month string }
	uploadedByPeriod := make(map[periodKey]int)
	pending := 0
	for _, fd := range files {
		if led.IsUploaded(fd) {
			uploadedByPeriod[periodKey{fd.Year, fd.Month}]++
		} else {
			pending++
		}
	}

	output.KeyValue(cmd.OutOrStdout(), [][2]string{
		{"Base path", cfg.BasePath},
		{"Bucket", cfg.Bucket},
		{"Ledger", cfg.LedgerPath},
		{"Files discovered", output.Count(len(files))},
		{"Files uploaded", output.Count(len(files) - pending)},
		{"Files pending", output.Count(pending)},
	})

	tbl := output.NewTable("Year", "Month", "Total Files", "Uploaded", "Pending", "Size")
	for _, pc := range scanner.Summarize(files) {
		uploaded := uploadedByPeriod[periodKey{pc.Year, pc.Month}]
		tbl.Append(
			pc.Year, pc.Month,
			output.Count(pc.Count),
			output.Count(uploaded),
			output.Count(pc.Count-uploaded),
			output.Bytes(pc.Bytes),
		)
	}
	cmd.Println()
	tbl.Render(cmd.OutOrStdout())
	return nil
}
