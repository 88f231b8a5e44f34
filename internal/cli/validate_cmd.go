package cli

import (
	"fmt"

	"github.com/anilpraneeth/time-series-rollup/internal/config"

	"github.com/spf13/cobra"
)

func newValidateRollupConfigCmd(flags *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "validate-rollup-config",
		Short: "check every active config for schema mismatches",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := resolveConfig(*flags)
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			results, err := a.validator.ValidateRollupConfig(cmd.Context())
			if err != nil {
				return err
			}

			invalid := 0
			for _, r := range results {
				status := "OK"
				if !r.IsValid {
					status = "INVALID"
					invalid++
				}
				fmt.Printf("%s -> %s: %s", r.SourceTable, r.TargetTable, status)
				if r.Message != "" {
					fmt.Printf(" (%s)", r.Message)
				}
				fmt.Println()
			}
			if invalid > 0 {
				return fmt.Errorf("%d of %d configs failed validation", invalid, len(results))
			}
			return nil
		},
	}
}
