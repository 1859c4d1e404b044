package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/splitledger/splitledger/internal/config"
	"github.com/splitledger/splitledger/internal/schema"
)

func newSchemasCommand() *cobra.Command {
	var projectDir string

	cmd := &cobra.Command{
		Use:   "schemas",
		Short: "List loaded schema definitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			absDir, err := filepath.Abs(projectDir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			return listSchemas(absDir)
		},
	}

	cmd.Flags().StringVar(&projectDir, "project", ".", "project directory")

	return cmd
}

func listSchemas(dir string) error {
	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	if err != nil {
		return err
	}
	registry, err := schema.LoadRegistry(config.Resolve(dir, cfg.Paths.Schemas))
	if err != nil {
		return err
	}

	for _, d := range registry.Definitions() {
		fmt.Printf("%-20s %s\n", d.ID, d.Name)
		if d.FilePattern != "" {
			fmt.Printf("  file pattern:  %s\n", d.FilePattern)
		}
		fmt.Printf("  signature:     %v\n", d.HeaderSignature)
		fmt.Printf("  sign rule:     %s\n", d.SignRule.Type)
	}
	return nil
}
