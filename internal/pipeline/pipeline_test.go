package pipeline

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splitledger/splitledger/internal/ledger"
	"github.com/splitledger/splitledger/internal/logging"
	"github.com/splitledger/splitledger/internal/merchant"
	"github.com/splitledger/splitledger/internal/model"
	"github.com/splitledger/splitledger/internal/rules"
	"github.com/splitledger/splitledger/internal/schema"
)

const testSchemas = `
schemas:
  - id: chase_checking
    schema_name: Chase checking
    file_pattern: "(?i)chase.*\\.csv$"
    date_format: "01/02/2006"
    header_signature: [date, description, amount]
    column_map:
      date: date
      description: description
      amount: amount
    sign_rule:
      type: as_is
    extra_static_cols:
      institution: chase
      account: "1234"
  - id: copilot_feed
    schema_name: Copilot feed
    date_format: "2006-01-02"
    header_signature: [date, name, amount, bank, account]
    column_map:
      date: date
      name: description
      amount: amount
      bank: institution
      account: account
    sign_rule:
      type: as_is
`

const testMerchants = `
rules:
  - pattern: 'kodo\s*sushi'
    merchant: Kodo Sushi
    category: dining
`

const testRules = `
persons: [ryan, jordyn]
settlement_keywords: [venmo]
default_split:
  ryan: 50
  jordyn: 50
rent:
  pattern: '\brent\b'
  split:
    ryan: 43
    jordyn: 57
source_priority: [copilot_feed, chase_checking]
`

func testPipeline(t *testing.T) *Pipeline {
	t.Helper()
	reg, err := schema.ParseRegistry([]byte(testSchemas))
	require.NoError(t, err)
	merchants, err := merchant.Parse([]byte(testMerchants))
	require.NoError(t, err)
	cfg, err := rules.Parse([]byte(testRules))
	require.NoError(t, err)
	return New(reg, merchants, cfg, logging.NewWithWriter(&strings.Builder{}))
}

// Both feeds report the same underlying purchase: same date, amount,
// description, bank, account. Exactly one canonical transaction must survive.
func testFiles() []model.RawFile {
	return []model.RawFile{
		{
			Name:    "Chase1234_Activity.csv",
			Owner:   "ryan",
			Headers: []string{"Date", "Description", "Amount", "Balance"},
			Rows: [][]string{
				{"07/01/2024", "Kodo Sushi", "-6.00", "994.00"},
				{"07/03/2024", "JULY RENT", "-2119.72", "-1125.72"},
			},
		},
		{
			Name:    "copilot-export.csv",
			Owner:   "ryan",
			Headers: []string{"Date", "Name", "Amount", "Bank", "Account"},
			Rows: [][]string{
				{"2024-07-01", "Kodo Sushi", "-6.00", "chase", "1234"},
			},
		},
	}
}

func TestRun_CrossAggregatorDedup(t *testing.T) {
	p := testPipeline(t)
	res := p.Run(testFiles(), nil)

	assert.Equal(t, 2, res.Summary.FilesProcessed)
	assert.Equal(t, 1, res.Summary.ExactDupes+res.Summary.FuzzyDupes)

	var sushi []model.CanonicalTransaction
	for _, txn := range res.Transactions {
		if txn.Merchant == "Kodo Sushi" {
			sushi = append(sushi, txn)
		}
	}
	require.Len(t, sushi, 1, "the same purchase from two aggregators collapses to one")
	assert.Equal(t, "copilot_feed", sushi[0].Source, "priority order picks the survivor")
}

func TestRun_LedgerNetEffects(t *testing.T) {
	p := testPipeline(t)
	res := p.Run(testFiles(), nil)

	byPerson := make(map[string]decimal.Decimal)
	for _, e := range res.Ledger {
		byPerson[e.Person] = byPerson[e.Person].Add(e.NetEffect)
	}

	// Sushi: -3.00 / +3.00. Rent: 911.48-2119.72 = -1208.24 / +1208.24.
	assert.Equal(t, "-1211.24", byPerson["ryan"].StringFixed(2))
	assert.Equal(t, "1211.24", byPerson["jordyn"].StringFixed(2))

	// Running balances must be re-derivable from scratch.
	totals := ledger.Balances(res.Ledger)
	last := make(map[string]decimal.Decimal)
	for _, e := range res.Ledger {
		last[e.Person] = e.RunningBalance
	}
	for person, want := range totals {
		assert.True(t, want.Equal(last[person]), "running balance mismatch for %s", person)
	}
}

func TestRun_Idempotent(t *testing.T) {
	p := testPipeline(t)
	first := p.Run(testFiles(), nil)
	second := p.Run(testFiles(), nil)

	require.Equal(t, len(first.Transactions), len(second.Transactions))
	for i := range first.Transactions {
		assert.Equal(t, first.Transactions[i].TxnID, second.Transactions[i].TxnID)
	}

	require.Equal(t, len(first.Ledger), len(second.Ledger))
	for i := range first.Ledger {
		assert.True(t, first.Ledger[i].NetEffect.Equal(second.Ledger[i].NetEffect))
		assert.True(t, first.Ledger[i].RunningBalance.Equal(second.Ledger[i].RunningBalance))
	}
}

func TestRun_UnmatchedFileSkippedNotFatal(t *testing.T) {
	p := testPipeline(t)
	files := append(testFiles(), model.RawFile{
		Name:    "mystery.csv",
		Owner:   "jordyn",
		Headers: []string{"Foo", "Bar"},
		Rows:    [][]string{{"1", "2"}},
	})

	res := p.Run(files, nil)
	assert.Equal(t, 2, res.Summary.FilesProcessed)
	require.Len(t, res.Summary.FilesSkipped, 1)
	assert.Equal(t, "mystery.csv", res.Summary.FilesSkipped[0].Name)
	assert.NotEmpty(t, res.Transactions, "one bad file must not sink the batch")
}

func TestRun_MalformedRowFlaggedAndExcluded(t *testing.T) {
	p := testPipeline(t)
	files := []model.RawFile{{
		Name:    "chase_feb.csv",
		Owner:   "ryan",
		Headers: []string{"Date", "Description", "Amount"},
		Rows: [][]string{
			{"02/01/2024", "GOOD ROW", "-10.00"},
			{"garbage", "BAD DATE", "-5.00"},
		},
	}}

	res := p.Run(files, nil)
	assert.Equal(t, 1, res.Summary.RowsFlagged)
	assert.Len(t, res.Transactions, 2, "flagged rows stay in the output")
	assert.Len(t, res.Ledger, 2, "but only the good row reconciles")
}

func TestRun_OutlierFlaggedButStillReconciled(t *testing.T) {
	reg, err := schema.ParseRegistry([]byte(testSchemas))
	require.NoError(t, err)
	merchants, err := merchant.Parse([]byte(testMerchants))
	require.NoError(t, err)
	cfg, err := rules.Parse([]byte(testRules + "outlier_amount: 5000\n"))
	require.NoError(t, err)
	p := New(reg, merchants, cfg, logging.NewWithWriter(&strings.Builder{}))

	files := []model.RawFile{{
		Name:    "chase_mar.csv",
		Owner:   "ryan",
		Headers: []string{"Date", "Description", "Amount"},
		Rows: [][]string{
			{"03/01/2024", "WIRE TRANSFER", "-9000.00"},
		},
	}}

	res := p.Run(files, nil)
	require.Len(t, res.Transactions, 1)
	assert.Equal(t, model.QualityOutlier, res.Transactions[0].Quality)
	assert.Equal(t, 1, res.Summary.RowsFlagged)

	// Unlike a malformed row, an outlier still carries a usable date and
	// amount, so it reconciles as usual.
	require.Len(t, res.Ledger, 2)
	assert.Equal(t, "-4500.00", res.Ledger[0].NetEffect.StringFixed(2))
}

func TestRun_ReviewDecisionsMergeByTxnID(t *testing.T) {
	p := testPipeline(t)
	base := p.Run(testFiles(), nil)

	var sushiID string
	for _, txn := range base.Transactions {
		if txn.Merchant == "Kodo Sushi" {
			sushiID = txn.TxnID
		}
	}
	require.NotEmpty(t, sushiID)

	res := p.Run(testFiles(), []model.ReviewDecision{
		{TxnID: sushiID, Shared: model.SharedNo},
	})

	// Marked personal on review: drops out of the ledger entirely.
	for _, e := range res.Ledger {
		assert.NotEqual(t, sushiID, e.TxnID)
	}
}

func TestRun_ExtrasSurviveThePipeline(t *testing.T) {
	p := testPipeline(t)
	res := p.Run(testFiles(), nil)

	var chaseRent model.CanonicalTransaction
	for _, txn := range res.Transactions {
		if strings.Contains(txn.OriginalDescription, "RENT") {
			chaseRent = txn
		}
	}
	assert.Equal(t, "-1125.72", chaseRent.Extras["Balance"])
}
