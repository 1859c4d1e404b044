package rules

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/splitledger/splitledger/internal/model"
)

// Outcome is the reconciliation result for one transaction: its class and
// the per-person ledger entries (without running balances), or a routing to
// manual review.
type Outcome struct {
	Class        model.Class
	Entries      []model.LedgerEntry
	NeedsReview  bool
	ReviewReason string
}

// Engine evaluates transactions against an immutable Config. Evaluation is
// stateless: the outcome depends only on the transaction and the rules.
type Engine struct {
	cfg *Config
}

// NewEngine creates an Engine over a validated Config.
func NewEngine(cfg *Config) *Engine {
	return &Engine{cfg: cfg}
}

var hundred = decimal.NewFromInt(100)

// Evaluate classifies a transaction and computes signed net effects.
// Positive net effect means the person owes the other; negative means they
// are owed.
func (e *Engine) Evaluate(t model.CanonicalTransaction) Outcome {
	payer := strings.ToLower(t.Owner)
	if !e.cfg.isPerson(payer) {
		// A stray export directory must not invent a third person.
		return Outcome{NeedsReview: true, ReviewReason: "owner is not a configured person: " + t.Owner}
	}
	other := e.cfg.Other(payer)
	text := t.OriginalDescription
	if t.Merchant != "" {
		text = t.Merchant + " " + text
	}

	// Explicit review decision first: N excludes the row entirely.
	if t.SharedFlag == model.SharedNo {
		return Outcome{Class: model.ClassPersonal}
	}
	for _, re := range e.cfg.personalRes {
		if re.MatchString(text) {
			return Outcome{Class: model.ClassPersonal}
		}
	}

	if e.isSettlement(text) {
		return e.settlement(t, payer, other)
	}
	if e.isRent(t) {
		return e.rent(t, payer, other)
	}
	return e.shared(t, payer, other)
}

func (e *Engine) isSettlement(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range e.cfg.SettlementKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// settlement records a balance-adjusting transfer: the payer's outflow
// reduces what they owe, mirrored exactly on the other side.
func (e *Engine) settlement(t model.CanonicalTransaction, payer, other string) Outcome {
	amt := t.Amount.Round(2)
	return Outcome{
		Class: model.ClassSettlement,
		Entries: []model.LedgerEntry{
			{TxnID: t.TxnID, Date: t.Date, Person: payer, Class: model.ClassSettlement, NetEffect: amt},
			{TxnID: t.TxnID, Date: t.Date, Person: other, Class: model.ClassSettlement, NetEffect: amt.Neg()},
		},
	}
}

func (e *Engine) isRent(t model.CanonicalTransaction) bool {
	if e.cfg.Rent.re == nil {
		return false
	}
	return e.cfg.Rent.re.MatchString(t.Category) || e.cfg.Rent.re.MatchString(t.OriginalDescription)
}

// rent applies the fixed-percentage rent split. The payer's entry is their
// share minus the full rent; the other entry is just their share, so the two
// always sum to zero and the shares always sum to the full rent.
func (e *Engine) rent(t model.CanonicalTransaction, payer, other string) Outcome {
	fullRent := t.Amount.Abs().Round(2)
	payerShare := fullRent.Mul(decimal.NewFromFloat(e.cfg.Rent.Split[payer])).Div(hundred).Round(2)
	otherShare := fullRent.Sub(payerShare)

	return Outcome{
		Class: model.ClassRent,
		Entries: []model.LedgerEntry{
			{TxnID: t.TxnID, Date: t.Date, Person: payer, Class: model.ClassRent, NetEffect: payerShare.Sub(fullRent)},
			{TxnID: t.TxnID, Date: t.Date, Person: other, Class: model.ClassRent, NetEffect: otherShare},
		},
	}
}

// shared applies the standard formula:
//
//	net[payer] = allowed[payer] - actual_paid
//	net[other] = allowed[other]
//
// where allowed amounts come from the source-declared AllowedAmount when
// present, otherwise from the split percentage applied to the transaction
// amount. Description-pattern overrides run first and may scale or
// reallocate the shareable amount, or divert the row to manual review.
func (e *Engine) shared(t model.CanonicalTransaction, payer, other string) Outcome {
	actualPaid := t.Amount.Neg().Round(2) // outflow-negative, so paid is positive

	shareable := actualPaid
	if t.AllowedAmount.Valid {
		shareable = t.AllowedAmount.Decimal.Round(2)
	}

	// Allocation percentages, payer first.
	payerPct := decimal.NewFromFloat(e.cfg.DefaultSplit[payer])
	if t.SharedFlag == model.SharedSplit {
		payerPct = t.SplitPercent
	}

	if o, done := e.applyOverrides(t, payer, other, &shareable, &payerPct); done {
		return o
	}

	allowedPayer := shareable.Mul(payerPct).Div(hundred).Round(2)
	allowedOther := shareable.Sub(allowedPayer)

	return Outcome{
		Class: model.ClassShared,
		Entries: []model.LedgerEntry{
			{TxnID: t.TxnID, Date: t.Date, Person: payer, Class: model.ClassShared, NetEffect: allowedPayer.Sub(actualPaid)},
			{TxnID: t.TxnID, Date: t.Date, Person: other, Class: model.ClassShared, NetEffect: allowedOther},
		},
	}
}

// applyOverrides evaluates the declarative phrase table. The first matching
// rule applies. When the modifier marker fires but no rule matched, the row
// is an unrecognized modifier and goes to manual review rather than being
// guessed at.
func (e *Engine) applyOverrides(t model.CanonicalTransaction, payer, other string, shareable, payerPct *decimal.Decimal) (Outcome, bool) {
	desc := t.OriginalDescription
	for i := range e.cfg.Overrides {
		o := &e.cfg.Overrides[i]
		m := o.re.FindStringSubmatch(desc)
		if m == nil {
			continue
		}
		switch o.Effect {
		case EffectMultiply:
			*shareable = shareable.Mul(decimal.NewFromFloat(o.Factor)).Round(2)
		case EffectAssignFull, EffectExempt:
			person := strings.ToLower(o.Person)
			if person == "" && len(m) > 1 {
				person = strings.ToLower(m[1])
			}
			if !e.cfg.isPerson(person) {
				return Outcome{NeedsReview: true, ReviewReason: "override names unknown person: " + desc}, true
			}
			bearer := person
			if o.Effect == EffectExempt {
				bearer = e.cfg.Other(person)
			}
			if bearer == payer {
				*payerPct = hundred
			} else {
				*payerPct = decimal.Zero
			}
		case EffectReview:
			return Outcome{NeedsReview: true, ReviewReason: "flagged for manual review: " + desc}, true
		}
		return Outcome{}, false
	}

	if e.cfg.markerRe != nil && e.cfg.markerRe.MatchString(desc) {
		return Outcome{NeedsReview: true, ReviewReason: "unrecognized modifier phrase: " + desc}, true
	}
	return Outcome{}, false
}
