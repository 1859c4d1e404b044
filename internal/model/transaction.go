package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Class is the reconciliation classification of a transaction.
type Class string

const (
	ClassSettlement Class = "settlement"
	ClassRent       Class = "rent"
	ClassShared     Class = "shared"
	ClassPersonal   Class = "personal"
)

// QualityFlag marks a row that parsed imperfectly. Malformed rows are kept
// in the output but excluded from reconciliation; the outlier flag is
// advisory and the row still reconciles.
type QualityFlag string

const (
	QualityOK        QualityFlag = ""
	QualityBadDate   QualityFlag = "bad_date"
	QualityBadAmount QualityFlag = "bad_amount"
	QualityOutlier   QualityFlag = "outlier"
)

// Malformed reports whether the row failed to parse and cannot carry a
// trustworthy date or amount into reconciliation.
func (q QualityFlag) Malformed() bool {
	return q == QualityBadDate || q == QualityBadAmount
}

// SharedFlag is the user-reviewable sharing decision for a transaction.
type SharedFlag string

const (
	SharedYes   SharedFlag = "Y"
	SharedNo    SharedFlag = "N"
	SharedSplit SharedFlag = "S"
)

// CanonicalTransaction is the unit of work after schema transformation.
// Immutable once created, except SharedFlag/SplitPercent which an external
// review step may overwrite keyed by TxnID.
type CanonicalTransaction struct {
	TxnID               string
	Date                time.Time
	Amount              decimal.Decimal // negative = outflow
	OriginalDescription string
	Merchant            string
	Category            string
	Owner               string
	Account             string
	AccountLast4        string
	AccountType         string
	Institution         string
	DataSourceName      string
	Source              string              // originating aggregator/bank feed
	AllowedAmount       decimal.NullDecimal // authoritative shareable amount, when declared
	SharedFlag          SharedFlag
	SplitPercent        decimal.Decimal // owner's share in percent, used when SharedFlag == "S"
	Quality             QualityFlag
	Extras              map[string]string // unmapped source columns, never dropped
}

// LedgerEntry is the per-person balance delta derived from one transaction.
// Positive NetEffect means the person owes the other; negative means they are
// owed. RunningBalance is always recomputable from the ordered NetEffect
// sequence and is never authoritative on its own.
type LedgerEntry struct {
	TxnID          string
	Date           time.Time
	Person         string
	Class          Class
	NetEffect      decimal.Decimal
	RunningBalance decimal.Decimal
}

// ReviewDecision is one row of manual-review input: a sharing decision for a
// single transaction, keyed by TxnID.
type ReviewDecision struct {
	TxnID        string
	Shared       SharedFlag
	SplitPercent decimal.Decimal
}

// ReviewItem is a transaction routed to manual review, with the reason it
// could not be reconciled automatically.
type ReviewItem struct {
	Txn    CanonicalTransaction
	Reason string
}
