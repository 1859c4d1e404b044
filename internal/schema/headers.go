package schema

import "strings"

// headerAliases folds common header spellings onto one canonical name before
// matching. Keys and values are already normalized (lowercase, single spaces).
var headerAliases = map[string]string{
	"txn date":         "date",
	"transaction date": "date",
	"posted date":      "date",
	"posting date":     "date",
	"details":          "description",
	"memo":             "description",
	"transaction":      "description",
	"debit/credit":     "amount",
	"transaction type": "type",
	"txn type":         "type",
	"acct":             "account",
	"account number":   "account",
	"account name":     "account",
}

// NormalizeHeader lowercases, trims, collapses whitespace, and applies the
// alias table to a raw CSV header.
func NormalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.Join(strings.Fields(h), " ")
	if alias, ok := headerAliases[h]; ok {
		return alias
	}
	return h
}

// NormalizeHeaders normalizes a full header row, preserving order.
func NormalizeHeaders(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = NormalizeHeader(h)
	}
	return out
}
