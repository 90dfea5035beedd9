package commands

import (
	"github.com/spf13/cobra"

	"github.com/aisdata/aisup/internal/cli/output"
	"github.com/aisdata/aisup/internal/ledger"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show upload progress from the ledger",
	Long: `Report what the progress ledger has recorded as uploaded, broken down by
year and month. Reads only the local ledger; the store is not contacted.

Example:
  aisup status`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	led := ledger.Open(cfg.LedgerPath, log)

	tbl := output.NewTable("Year", "Month", "Files Uploaded", "Total Size")
	var totalBytes int64
	for _, group := range led.Snapshot() {
		bytes := group.Bytes()
		totalBytes += bytes
		tbl.Append(group.Year, group.Month, output.Count(len(group.Records)), output.Bytes(bytes))
	}
	tbl.Render(cmd.OutOrStdout())

	output.KeyValue(cmd.OutOrStdout(), [][2]string{
		{"Total files uploaded", output.Count(led.Len())},
		{"Total size uploaded", output.Bytes(totalBytes)},
		{"Ledger", cfg.LedgerPath},
	})
	return nil
}
