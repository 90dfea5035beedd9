package commands

import (
	"github.com/spf13/cobra"

	"github.com/aisdata/aisup/internal/cli/output"
	"github.com/aisdata/aisup/internal/ledger"
	"github.com/aisdata/aisup/internal/scanner"
)

var (
	scanBasePath string
	scanOutput   string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the archive tree and save the file list",
	Long: `Walk the YEAR/MONTH directory tree, report the archives found per period,
and save the file list as JSON for later inspection.

Example:
  aisup scan --base-path /data/ais --output ais_files.json`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVarP(&scanBasePath, "base-path", "p", "", "base directory of the YEAR/MONTH archive tree")
	scanCmd.Flags().StringVarP(&scanOutput, "output", "o", "ais_files.json", "output file for the scanned file list")
}

func runScan(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(&storeFlags{basePath: scanBasePath})
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

	if err := scanner.SaveList(scanOutput, files); err != nil {
		return err
	}

	led := ledger.Open(cfg.LedgerPath, log)
	pending := 0
	var pendingBytes int64
	for _, fd := range files {
		if !led.IsUploaded(fd) {
			pending++
			pendingBytes += fd.Size
		}
	}

	tbl := output.NewTable("Year", "Month", "Files", "Size")
	var total int
	var totalBytes int64
	for _, pc := range scanner.Summarize(files) {
		tbl.Append(pc.Year, pc.Month, output.Count(pc.Count), output.Bytes(pc.Bytes))
		total += pc.Count
		totalBytes += pc.Bytes
	}
	tbl.Render(cmd.OutOrStdout())

	output.KeyValue(cmd.OutOrStdout(), [][2]string{
		{"Total files", output.Count(total)},
		{"Total size", output.Bytes(totalBytes)},
		{"Pending upload", output.Count(pending)},
		{"Pending size", output.Bytes(pendingBytes)},
		{"File list", scanOutput},
	})
	return nil
}
