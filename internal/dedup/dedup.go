// Package dedup collapses duplicate records originating from multiple data
// aggregators covering the same underlying bank transaction.
package dedup

import (
	"strconv"
	"strings"

	"github.com/splitledger/splitledger/internal/model"
	"github.com/splitledger/splitledger/internal/txnid"
)

// fuzzyTokens is the description window for the fuzzy composite key: the
// first 4 normalized tokens after reference noise is stripped.
const fuzzyTokens = 4

// Audit records one collapse, for the run summary and logs.
type Audit struct {
	TxnID   string
	Kept    string   // surviving Source
	Dropped []string // losing Source values
	Cause   string   // "exact" or "fuzzy"
}

// Exact groups transactions by TxnID and keeps exactly one per group, chosen
// by the configured Source priority order (earlier in the list wins; unknown
// sources rank last; ties keep the first encountered). Output preserves the
// input order of the surviving records.
func Exact(txns []model.CanonicalTransaction, priority []string) ([]model.CanonicalTransaction, []Audit) {
	rank := make(map[string]int, len(priority))
	for i, s := range priority {
		rank[strings.ToLower(s)] = i
	}
	sourceRank := func(s string) int {
		if r, ok := rank[strings.ToLower(s)]; ok {
			return r
		}
		return len(priority)
	}

	type group struct {
		winner  int // index into txns
		dropped []string
	}
	groups := make(map[string]*group)
	var order []string

	for i, t := range txns {
		g, ok := groups[t.TxnID]
		if !ok {
			groups[t.TxnID] = &group{winner: i}
			order = append(order, t.TxnID)
			continue
		}
		cur := txns[g.winner]
		if sourceRank(t.Source) < sourceRank(cur.Source) {
			g.dropped = append(g.dropped, cur.Source)
			g.winner = i
		} else {
			g.dropped = append(g.dropped, t.Source)
		}
	}

	var out []model.CanonicalTransaction
	var audits []Audit
	for _, id := range order {
		g := groups[id]
		out = append(out, txns[g.winner])
		if len(g.dropped) > 0 {
			audits = append(audits, Audit{
				TxnID:   id,
				Kept:    txns[g.winner].Source,
				Dropped: g.dropped,
				Cause:   "exact",
			})
		}
	}
	return out, audits
}

// Fuzzy collapses cross-aggregator near-duplicates that exact TxnID dedup
// did not resolve. Records merge only when they agree exactly on date and
// signed amount, come from different sources, and share the first
// fuzzyTokens noise-stripped description tokens. The survivor is the record
// with the highest completeness score; ties keep the first encountered.
// Records differing in amount are never merged, so a purchase and its
// same-day refund stay distinct; repeats from a single source stay distinct
// too, since one aggregator reporting the same amount twice is two real
// transactions, not a duplicate.
func Fuzzy(txns []model.CanonicalTransaction) ([]model.CanonicalTransaction, []Audit) {
	type group struct {
		winner  int
		dropped []string
		sources map[string]bool
	}
	groups := make(map[string]*group)
	var order []string

	for i, t := range txns {
		key := compositeKey(t)
		src := strings.ToLower(t.Source)
		g, ok := groups[key]
		if !ok || g.sources[src] {
			if ok {
				// Same-source repeat: open a fresh group under a
				// synthetic key so it never collapses.
				key += "#" + strconv.Itoa(i)
			}
			groups[key] = &group{winner: i, sources: map[string]bool{src: true}}
			order = append(order, key)
			continue
		}
		g.sources[src] = true
		cur := txns[g.winner]
		if CompletenessScore(t) > CompletenessScore(cur) {
			g.dropped = append(g.dropped, cur.Source)
			g.winner = i
		} else {
			g.dropped = append(g.dropped, t.Source)
		}
	}

	var out []model.CanonicalTransaction
	var audits []Audit
	for _, key := range order {
		g := groups[key]
		out = append(out, txns[g.winner])
		if len(g.dropped) > 0 {
			audits = append(audits, Audit{
				TxnID:   txns[g.winner].TxnID,
				Kept:    txns[g.winner].Source,
				Dropped: g.dropped,
				Cause:   "fuzzy",
			})
		}
	}
	return out, audits
}

// compositeKey is the conservative fuzzy fingerprint: exact date, exact
// signed amount, and the leading core description tokens.
func compositeKey(t model.CanonicalTransaction) string {
	toks := txnid.CoreTokens(t.OriginalDescription, fuzzyTokens)
	return t.Date.Format("2006-01-02") + "|" +
		t.Amount.StringFixed(2) + "|" +
		strings.Join(toks, " ")
}

// CompletenessScore rates how much usable information a record carries. The
// rubric is fixed so dedup survivor selection stays auditable:
// non-empty merchant +2, description longer than 10 chars +3, non-empty
// account +1, non-empty institution +1, non-empty category +1.
func CompletenessScore(t model.CanonicalTransaction) int {
	score := 0
	if t.Merchant != "" {
		score += 2
	}
	if len(t.OriginalDescription) > 10 {
		score += 3
	}
	if t.Account != "" || t.AccountLast4 != "" {
		score++
	}
	if t.Institution != "" {
		score++
	}
	if t.Category != "" {
		score++
	}
	return score
}
