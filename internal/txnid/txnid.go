// Package txnid computes the deterministic transaction identifier used for
// cross-source deduplication and idempotency.
package txnid

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// hexLen is the kept length of the hex digest: 32 hex chars = 128 bits.
// Truncating below this is disallowed; a collision silently merges two
// distinct transactions.
const hexLen = 32

const dateFormat = "2006-01-02"

// Compute returns the TxnID for a transaction. The fingerprint covers date,
// amount at fixed two decimals, the normalized core description, bank, and
// account. Source is deliberately excluded so the same real-world transaction
// reported by two aggregators collides.
func Compute(date time.Time, amount decimal.Decimal, description, bank, account string) string {
	parts := []string{
		date.Format(dateFormat),
		amount.StringFixed(2),
		NormalizeDescription(description),
		strings.ToLower(strings.TrimSpace(bank)),
		strings.ToLower(strings.TrimSpace(account)),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])[:hexLen]
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9 ]+`)

// NormalizeDescription reduces a free-text description to its comparable
// core: lowercase, punctuation stripped, whitespace collapsed.
func NormalizeDescription(s string) string {
	s = strings.ToLower(s)
	s = nonAlnum.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// noiseToken matches transaction-reference noise inside descriptions:
// sequence numbers, reference codes, org codes. Used when building fuzzy
// dedup keys.
var noiseToken = regexp.MustCompile(`^(?:\d{4,}|(?:ref|seq|id|code|no|nbr)\d*|x{2,}\d*)$`)

// CoreTokens returns the first n normalized description tokens with
// reference noise stripped.
func CoreTokens(description string, n int) []string {
	var out []string
	for _, tok := range strings.Fields(NormalizeDescription(description)) {
		if noiseToken.MatchString(tok) {
			continue
		}
		out = append(out, tok)
		if len(out) == n {
			break
		}
	}
	return out
}
