package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/splitledger/splitledger/internal/config"
	"github.com/splitledger/splitledger/internal/export"
	"github.com/splitledger/splitledger/internal/logging"
	"github.com/splitledger/splitledger/internal/merchant"
	"github.com/splitledger/splitledger/internal/model"
	"github.com/splitledger/splitledger/internal/pipeline"
	"github.com/splitledger/splitledger/internal/rawcsv"
	"github.com/splitledger/splitledger/internal/review"
	"github.com/splitledger/splitledger/internal/rules"
	"github.com/splitledger/splitledger/internal/schema"
)

func newRunCommand() *cobra.Command {
	var projectDir string
	var reviewFile string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full reconciliation batch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			absDir, err := filepath.Abs(projectDir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			return runBatch(absDir, reviewFile)
		},
	}

	cmd.Flags().StringVar(&projectDir, "project", ".", "project directory")
	cmd.Flags().StringVar(&reviewFile, "review", "", "manual-review decisions CSV")

	return cmd
}

func runBatch(dir, reviewFile string) error {
	log := logging.New()

	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	if err != nil {
		return err
	}

	// Configuration problems are fatal: nothing is partially processed.
	registry, err := schema.LoadRegistry(config.Resolve(dir, cfg.Paths.Schemas))
	if err != nil {
		return err
	}
	merchants, err := merchant.Load(config.Resolve(dir, cfg.Paths.Merchants))
	if err != nil {
		return err
	}
	ruleCfg, err := rules.Load(config.Resolve(dir, cfg.Paths.Rules))
	if err != nil {
		return err
	}

	files, err := loadFiles(config.Resolve(dir, cfg.Paths.Input))
	if err != nil {
		return err
	}

	var decisions []model.ReviewDecision
	if reviewFile == "" {
		reviewFile = cfg.ReviewF
	}
	if reviewFile != "" {
		f, err := os.Open(config.Resolve(dir, reviewFile))
		if err != nil {
			return fmt.Errorf("opening review file: %w", err)
		}
		decisions, err = review.ReadDecisions(f, log)
		f.Close()
		if err != nil {
			return err
		}
	}

	p := pipeline.New(registry, merchants, ruleCfg, log)
	res := p.Run(files, decisions)

	if err := writeOutputs(dir, cfg, res); err != nil {
		return err
	}

	printSummary(res.Summary)
	return nil
}

func loadFiles(inputDir string) ([]model.RawFile, error) {
	infos, err := rawcsv.Scan(inputDir)
	if err != nil {
		return nil, err
	}
	files := make([]model.RawFile, 0, len(infos))
	for _, info := range infos {
		f, err := rawcsv.ReadFile(info)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

func writeOutputs(dir string, cfg *config.Config, res pipeline.Result) error {
	outDir := config.Resolve(dir, cfg.Output.Dir)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	write := func(name string, fn func(f *os.File) error) error {
		f, err := os.Create(filepath.Join(outDir, name))
		if err != nil {
			return fmt.Errorf("creating %s: %w", name, err)
		}
		defer f.Close()
		return fn(f)
	}

	if err := write(cfg.Output.Transactions, func(f *os.File) error {
		return export.WriteTransactions(f, res.Transactions)
	}); err != nil {
		return err
	}
	if err := write(cfg.Output.Ledger, func(f *os.File) error {
		return export.WriteLedger(f, res.Ledger)
	}); err != nil {
		return err
	}
	return write(cfg.Output.ReviewQueue, func(f *os.File) error {
		return export.WriteReviewQueue(f, res.Review)
	})
}

func printSummary(s model.RunSummary) {
	fmt.Printf("Files processed:    %d\n", s.FilesProcessed)
	fmt.Printf("Files skipped:      %d\n", len(s.FilesSkipped))
	for _, sk := range s.FilesSkipped {
		fmt.Printf("  %s: %s\n", sk.Name, sk.Reason)
	}
	fmt.Printf("Rows flagged:       %d\n", s.RowsFlagged)
	fmt.Printf("Exact dupes:        %d\n", s.ExactDupes)
	fmt.Printf("Fuzzy dupes:        %d\n", s.FuzzyDupes)
	fmt.Printf("Queued for review:  %d\n", s.ReviewQueued)
	fmt.Printf("Transactions out:   %d\n", s.TransactionsOut)
}
