// Package ledger accumulates per-person running balances from ordered net
// effects.
package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/splitledger/splitledger/internal/model"
)

// Accumulate orders entries by transaction date (stable on ties, preserving
// input order) and fills RunningBalance as the cumulative sum of each
// person's net effects. The input is not modified.
func Accumulate(entries []model.LedgerEntry) []model.LedgerEntry {
	out := make([]model.LedgerEntry, len(entries))
	copy(out, entries)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})

	totals := make(map[string]decimal.Decimal)
	for i := range out {
		p := out[i].Person
		totals[p] = totals[p].Add(out[i].NetEffect)
		out[i].RunningBalance = totals[p]
	}
	return out
}

// Balances recomputes final per-person balances from scratch over the entry
// sequence. Running balances in the input are ignored; this is the
// authoritative derivation.
func Balances(entries []model.LedgerEntry) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, e := range entries {
		totals[e.Person] = totals[e.Person].Add(e.NetEffect)
	}
	return totals
}
