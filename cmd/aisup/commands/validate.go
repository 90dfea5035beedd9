package commands

import (
	"github.com/spf13/cobra"

	"github.com/aisdata/aisup/internal/cli/output"
	"github.com/aisdata/aisup/internal/ledger"
	"github.com/aisdata/aisup/internal/uploader"
)

var validateFlags storeFlags

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate ledger records against the bucket",
	Long: `Check every file the ledger records as uploaded: the remote object must
exist with the recorded size, and the local file must still be present.

Example:
  aisup validate --bucket ais-archive`,
	RunE: runValidate,
}

func init() {
	addStoreFlags(validateCmd, &validateFlags)
}

const maxValidationErrorsShown = 10

func runValidate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(&validateFlags)
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	client, err := connect(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	led := ledger.Open(cfg.LedgerPath, log)
	coord := uploader.New(client, led, cfg.Bucket, uploader.WithLogger(log))

	res, err := coord.Validate(cmd.Context())
	if err != nil {
		return err
	}

	output.KeyValue(cmd.OutOrStdout(), [][2]string{
		{"Total records", output.Count(res.Total)},
		{"Valid", output.Count(res.Valid)},
		{"Invalid", output.Count(res.Invalid)},
		{"Missing locally", output.Count(res.Missing)},
	})

	if len(res.Errors) > 0 {
		cmd.Println("\nValidation errors:")
		shown := res.Errors
		if len(shown) > maxValidationErrorsShown {
			shown = shown[:maxValidationErrorsShown]
		}
		for _, e := range shown {
			cmd.Printf("  - %s\n", e)
		}
		if rest := len(res.Errors) - len(shown); rest > 0 {
			cmd.Printf("  ... and %d more\n", rest)
		}
	}
	return nil
}
