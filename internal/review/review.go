// Package review consumes manual-review decisions from an external review
// surface and merges them back into canonical transactions by TxnID.
package review

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/splitledger/splitledger/internal/model"
)

const (
	numFields = 3
	colTxnID  = 0
	colShared = 1
	colSplit  = 2
)

var defaultSplit = decimal.NewFromInt(50)

// ReadDecisions parses the three-column review contract: TxnID, decision
// (Y/N/S), split percent. Invalid decision letters are logged and skipped,
// never fatal. A missing percent on S defaults to 50; out-of-range values
// are clamped to [0,100].
func ReadDecisions(r io.Reader, log zerolog.Logger) ([]model.ReviewDecision, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading review CSV: %w", err)
	}

	var decisions []model.ReviewDecision
	for i, rec := range records {
		if i == 0 && looksLikeHeader(rec) {
			continue
		}
		if len(rec) < 2 {
			log.Warn().Int("row", i+1).Msg("review row too short, skipping")
			continue
		}

		txnID := strings.TrimSpace(rec[colTxnID])
		shared := model.SharedFlag(strings.ToUpper(strings.TrimSpace(rec[colShared])))
		switch shared {
		case model.SharedYes, model.SharedNo, model.SharedSplit:
		default:
			log.Warn().Int("row", i+1).Str("decision", string(shared)).Msg("invalid review decision, skipping")
			continue
		}

		split := defaultSplit
		if len(rec) > colSplit && strings.TrimSpace(rec[colSplit]) != "" {
			v, err := decimal.NewFromString(strings.TrimSpace(rec[colSplit]))
			if err != nil {
				log.Warn().Int("row", i+1).Str("split", rec[colSplit]).Msg("invalid split percent, using 50")
			} else {
				split = clamp(v)
			}
		}

		decisions = append(decisions, model.ReviewDecision{
			TxnID:        txnID,
			Shared:       shared,
			SplitPercent: split,
		})
	}
	return decisions, nil
}

func looksLikeHeader(rec []string) bool {
	return len(rec) > 0 && strings.EqualFold(strings.TrimSpace(rec[0]), "txn_id")
}

func clamp(v decimal.Decimal) decimal.Decimal {
	switch {
	case v.IsNegative():
		return decimal.Zero
	case v.GreaterThan(decimal.NewFromInt(100)):
		return decimal.NewFromInt(100)
	default:
		return v
	}
}

// Merge overwrites SharedFlag/SplitPercent on matching transactions. Only
// those two fields are reviewable; everything else stays immutable.
func Merge(txns []model.CanonicalTransaction, decisions []model.ReviewDecision) {
	byID := make(map[string]model.ReviewDecision, len(decisions))
	for _, d := range decisions {
		byID[d.TxnID] = d
	}
	for i := range txns {
		d, ok := byID[txns[i].TxnID]
		if !ok {
			continue
		}
		txns[i].SharedFlag = d.Shared
		txns[i].SplitPercent = d.SplitPercent
	}
}
