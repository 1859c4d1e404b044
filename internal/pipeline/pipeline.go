// Package pipeline orchestrates the batch run: schema matching,
// transformation, merchant normalization, deduplication, classification, and
// ledger accumulation.
package pipeline

import (
	"errors"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/splitledger/splitledger/internal/dedup"
	"github.com/splitledger/splitledger/internal/ledger"
	"github.com/splitledger/splitledger/internal/merchant"
	"github.com/splitledger/splitledger/internal/model"
	"github.com/splitledger/splitledger/internal/review"
	"github.com/splitledger/splitledger/internal/rules"
	"github.com/splitledger/splitledger/internal/schema"
	"github.com/splitledger/splitledger/internal/transform"
	"github.com/splitledger/splitledger/internal/txnid"
)

// Pipeline wires the immutable configuration snapshots together. Construct
// once per run; never mutated.
type Pipeline struct {
	schemas   *schema.Registry
	merchants *merchant.Table
	rules     *rules.Config
	engine    *rules.Engine
	log       zerolog.Logger
}

// Result is the core output contract: ordered canonical transactions,
// derived ledger entries, the manual-review queue, and the run summary.
type Result struct {
	Transactions []model.CanonicalTransaction
	Ledger       []model.LedgerEntry
	Review       []model.ReviewItem
	DedupAudit   []dedup.Audit
	Summary      model.RunSummary
}

// New creates a Pipeline over loaded configuration snapshots.
func New(schemas *schema.Registry, merchants *merchant.Table, cfg *rules.Config, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		schemas:   schemas,
		merchants: merchants,
		rules:     cfg,
		engine:    rules.NewEngine(cfg),
		log:       log,
	}
}

// Run processes raw files end to end. A file with no matching schema is
// skipped, not fatal; malformed rows are flagged and excluded from
// reconciliation but retained in the output.
func (p *Pipeline) Run(files []model.RawFile, decisions []model.ReviewDecision) Result {
	var res Result

	// Per-file: match, transform, normalize, stamp identity.
	var txns []model.CanonicalTransaction
	for _, f := range files {
		def, err := p.schemas.Match(f.Name, f.Headers)
		if err != nil {
			if errors.Is(err, schema.ErrSchemaNotFound) {
				p.log.Warn().Str("file", f.Name).Msg("no schema matches, skipping file")
				res.Summary.FilesSkipped = append(res.Summary.FilesSkipped, model.SkippedFile{
					Name:   f.Name,
					Reason: "no schema matches",
				})
				continue
			}
			res.Summary.FilesSkipped = append(res.Summary.FilesSkipped, model.SkippedFile{
				Name:   f.Name,
				Reason: err.Error(),
			})
			continue
		}

		rows, err := transform.Apply(f, def)
		if err != nil {
			p.log.Warn().Str("file", f.Name).Err(err).Msg("transformation failed, skipping file")
			res.Summary.FilesSkipped = append(res.Summary.FilesSkipped, model.SkippedFile{
				Name:   f.Name,
				Reason: err.Error(),
			})
			continue
		}

		p.log.Info().Str("file", f.Name).Str("schema", def.ID).Int("rows", len(rows)).Msg("transformed")
		res.Summary.FilesProcessed++
		txns = append(txns, rows...)
	}

	for i := range txns {
		p.finish(&txns[i])
	}

	// Global reductions: exact dedup by identity, then the conservative
	// fuzzy cross-aggregator pass.
	txns, exactAudit := dedup.Exact(txns, p.rules.SourcePriority)
	txns, fuzzyAudit := dedup.Fuzzy(txns)
	res.DedupAudit = append(exactAudit, fuzzyAudit...)
	res.Summary.ExactDupes = dropped(exactAudit)
	res.Summary.FuzzyDupes = dropped(fuzzyAudit)
	for _, a := range res.DedupAudit {
		p.log.Info().Str("txn_id", a.TxnID).Str("kept", a.Kept).Strs("dropped", a.Dropped).Str("cause", a.Cause).Msg("duplicate collapsed")
	}

	// Manual-review decisions re-merge by TxnID after dedup.
	review.Merge(txns, decisions)

	// Classification and ledger accumulation.
	var entries []model.LedgerEntry
	for _, t := range txns {
		if t.Quality != model.QualityOK {
			res.Summary.RowsFlagged++
			p.log.Warn().Str("txn_id", t.TxnID).Str("flag", string(t.Quality)).Str("description", t.OriginalDescription).Msg("row flagged")
			if t.Quality.Malformed() {
				continue
			}
		}
		out := p.engine.Evaluate(t)
		if out.NeedsReview {
			res.Review = append(res.Review, model.ReviewItem{Txn: t, Reason: out.ReviewReason})
			continue
		}
		entries = append(entries, out.Entries...)
	}

	res.Transactions = txns
	res.Ledger = ledger.Accumulate(entries)
	res.Summary.ReviewQueued = len(res.Review)
	res.Summary.TransactionsOut = len(txns)
	return res
}

// finish applies merchant normalization, the outlier threshold, and the
// deterministic identity to a transformed row.
func (p *Pipeline) finish(t *model.CanonicalTransaction) {
	if name, cat, ok := p.merchants.Apply(t.OriginalDescription); ok {
		if t.Merchant == "" {
			t.Merchant = name
		}
		if t.Category == "" {
			t.Category = cat
		}
	}

	if t.Quality == model.QualityOK && p.rules.OutlierAmount > 0 &&
		t.Amount.Abs().GreaterThan(decimal.NewFromFloat(p.rules.OutlierAmount)) {
		t.Quality = model.QualityOutlier
	}

	t.TxnID = txnid.Compute(t.Date, t.Amount, t.OriginalDescription, t.Institution, t.Account)
}

func dropped(audits []dedup.Audit) int {
	n := 0
	for _, a := range audits {
		n += len(a.Dropped)
	}
	return n
}
