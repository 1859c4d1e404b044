// Package export writes the core output contract (canonical transactions
// plus derived ledger entries) as CSV. Exporters are read-only consumers of
// the core's output.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/splitledger/splitledger/internal/model"
)

// TxnHeader is the CSV header for transactions.csv.
const TxnHeader = "txn_id,date,amount,description,merchant,category,owner,account,account_last4,account_type,institution,data_source,source,allowed_amount,shared,split_percent,quality_flag,extras"

const (
	txnNumFields  = 18
	colTxnID      = 0
	colDate       = 1
	colAmount     = 2
	colDesc       = 3
	colMerchant   = 4
	colCategory   = 5
	colOwner      = 6
	colAccount    = 7
	colLast4      = 8
	colAcctType   = 9
	colInst       = 10
	colDataSource = 11
	colSource     = 12
	colAllowed    = 13
	colShared     = 14
	colSplit      = 15
	colQuality    = 16
	colExtras     = 17
)

const dateFormat = "2006-01-02"

// WriteTransactions writes canonical transactions (including header).
func WriteTransactions(w io.Writer, txns []model.CanonicalTransaction) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(TxnHeader, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, t := range txns {
		row, err := MarshalTransaction(t)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// MarshalTransaction converts a transaction to a CSV row. Extras round-trip
// as a JSON object so no source column is ever lost.
func MarshalTransaction(t model.CanonicalTransaction) ([]string, error) {
	row := make([]string, txnNumFields)
	row[colTxnID] = t.TxnID
	if !t.Date.IsZero() {
		row[colDate] = t.Date.Format(dateFormat)
	}
	row[colAmount] = t.Amount.StringFixed(2)
	row[colDesc] = t.OriginalDescription
	row[colMerchant] = t.Merchant
	row[colCategory] = t.Category
	row[colOwner] = t.Owner
	row[colAccount] = t.Account
	row[colLast4] = t.AccountLast4
	row[colAcctType] = t.AccountType
	row[colInst] = t.Institution
	row[colDataSource] = t.DataSourceName
	row[colSource] = t.Source
	if t.AllowedAmount.Valid {
		row[colAllowed] = t.AllowedAmount.Decimal.StringFixed(2)
	}
	row[colShared] = string(t.SharedFlag)
	if !t.SplitPercent.IsZero() {
		row[colSplit] = t.SplitPercent.String()
	}
	row[colQuality] = string(t.Quality)

	if len(t.Extras) > 0 {
		extras, err := json.Marshal(t.Extras)
		if err != nil {
			return nil, fmt.Errorf("marshaling extras: %w", err)
		}
		row[colExtras] = string(extras)
	}
	return row, nil
}

// LedgerHeader is the CSV header for ledger.csv.
const LedgerHeader = "txn_id,date,person,class,net_effect,running_balance"

// WriteLedger writes derived ledger entries (including header).
func WriteLedger(w io.Writer, entries []model.LedgerEntry) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(LedgerHeader, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, e := range entries {
		row := []string{
			e.TxnID,
			e.Date.Format(dateFormat),
			e.Person,
			string(e.Class),
			e.NetEffect.StringFixed(2),
			e.RunningBalance.StringFixed(2),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// ReviewHeader is the CSV header for the manual-review queue.
const ReviewHeader = "txn_id,date,amount,description,owner,reason"

// WriteReviewQueue writes rows routed to manual review (including header).
func WriteReviewQueue(w io.Writer, items []model.ReviewItem) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(ReviewHeader, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, item := range items {
		row := []string{
			item.Txn.TxnID,
			item.Txn.Date.Format(dateFormat),
			item.Txn.Amount.StringFixed(2),
			item.Txn.OriginalDescription,
			item.Txn.Owner,
			item.Reason,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}
