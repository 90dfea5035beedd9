package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aisdata/aisup/errors"
	"github.com/aisdata/aisup/internal/cli/output"
	"github.com/aisdata/aisup/internal/gendata"
)

var (
	gendataFilesPerMonth int
	gendataYears         string
	gendataMonths        string
	gendataFileSize      int
)

var gendataCmd = &cobra.Command{
	Use:   "gendata <output-dir>",
	Short: "Generate a synthetic archive tree for testing",
	Long: `Create a YEAR/MONTH directory tree filled with dummy archives, sized to
exercise scanning and uploading against a real bucket.

Examples:
  aisup gendata test_data
  aisup gendata test_data --files-per-month 5 --years 2022,2023 --months 1,2,3
  aisup gendata test_data --file-size 2`,
	Args: cobra.ExactArgs(1),
	RunE: runGendata,
}

func init() {
	gendataCmd.Flags().IntVar(&gendataFilesPerMonth, "files-per-month", 3, "number of archives per month")
	gendataCmd.Flags().StringVar(&gendataYears, "years", "2022,2023,2024", "comma-separated years")
	gendataCmd.Flags().StringVar(&gendataMonths, "months", "1,2,3,4,5,6,7,8,9,10,11,12", "comma-separated months")
	gendataCmd.Flags().IntVar(&gendataFileSize, "file-size", 1, "size of each archive in MiB")
}

func runGendata(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	years, err := parseIntList(gendataYears)
	if err != nil {
		return fmt.Errorf("%w: parsing years: %w", errors.ErrInvalidInput, err)
	}
	months, err := parseIntList(gendataMonths)
	if err != nil {
		return fmt.Errorf("%w: parsing months: %w", errors.ErrInvalidInput, err)
	}

	res, err := gendata.Generate(gendata.Params{
		BasePath:      args[0],
		Years:         years,
		Months:        months,
		FilesPerMonth: gendataFilesPerMonth,
		FileSizeMB:    gendataFileSize,
	}, log)
	if err != nil {
		return err
	}

	output.KeyValue(cmd.OutOrStdout(), [][2]string{
		{"Files created", output.Count(res.Files)},
		{"Total size", output.Bytes(res.Bytes)},
		{"Output", args[0]},
	})
	return nil
}

func parseIntList(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
