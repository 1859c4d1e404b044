package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/splitledger/splitledger/internal/config"
	"github.com/splitledger/splitledger/internal/rules"
)

func newInitCommand() *cobra.Command {
	var persons []string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new splitledger project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			if len(persons) != 2 {
				return fmt.Errorf("--persons needs exactly two names, got %d", len(persons))
			}
			return runInit(absDir, persons[0], persons[1])
		},
	}

	cmd.Flags().StringSliceVar(&persons, "persons", nil, "the two persons sharing expenses (required)")
	_ = cmd.MarkFlagRequired("persons")

	return cmd
}

// sampleSchemas is a starting schemas.yaml covering one plain bank export.
const sampleSchemas = `schemas:
  - id: generic_bank
    schema_name: Generic bank export
    date_format: "2006-01-02"
    header_signature: [date, description, amount]
    column_map:
      date: date
      description: description
      amount: amount
    sign_rule:
      type: as_is
`

const sampleMerchants = "rules: []\n"

func runInit(dir, personA, personB string) error {
	for _, d := range []string{"exports", filepath.Join("exports", personA), filepath.Join("exports", personB), "out"} {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	cfg := config.Default()
	if err := config.Save(filepath.Join(dir, config.FileName), cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	if err := rules.Save(filepath.Join(dir, cfg.Paths.Rules), rules.Default(personA, personB)); err != nil {
		return fmt.Errorf("writing business rules: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, cfg.Paths.Schemas), []byte(sampleSchemas), 0o644); err != nil {
		return fmt.Errorf("writing schemas: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, cfg.Paths.Merchants), []byte(sampleMerchants), 0o644); err != nil {
		return fmt.Errorf("writing merchant rules: %w", err)
	}

	fmt.Printf("Initialized splitledger project at %s\n", dir)
	return nil
}
