// Package transform applies a matched schema definition to a raw record set,
// producing partially canonical transactions plus a lossless Extras bag for
// anything unmapped.
package transform

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/splitledger/splitledger/internal/model"
	"github.com/splitledger/splitledger/internal/schema"
)

// Apply canonicalizes every row of a raw file under the given definition.
// Rows never fail individually: unparsable dates or amounts set a quality
// flag and the row is kept. A structural mismatch (header row unusable) is
// the only error.
func Apply(file model.RawFile, def *schema.Definition) ([]model.CanonicalTransaction, error) {
	if len(file.Headers) == 0 {
		return nil, fmt.Errorf("%s: no header row", file.Name)
	}

	norm := schema.NormalizeHeaders(file.Headers)

	ignore := make(map[string]bool, len(def.ExtrasIgnore))
	for _, h := range def.ExtrasIgnore {
		ignore[schema.NormalizeHeader(h)] = true
	}

	// column_map keyed by normalized source header.
	colMap := make(map[string]string, len(def.ColumnMap))
	for src, dst := range def.ColumnMap {
		colMap[schema.NormalizeHeader(src)] = dst
	}

	txns := make([]model.CanonicalTransaction, 0, len(file.Rows))
	for i, row := range file.Rows {
		txn, err := applyRow(file, def, norm, row, colMap, ignore)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", file.Name, i+2, err)
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

func applyRow(file model.RawFile, def *schema.Definition, norm []string, row []string, colMap map[string]string, ignore map[string]bool) (model.CanonicalTransaction, error) {
	// Raw values by normalized header. First occurrence wins on duplicate
	// headers.
	raw := make(map[string]string, len(norm))
	for i, h := range norm {
		if i >= len(row) {
			break
		}
		if _, ok := raw[h]; !ok {
			raw[h] = strings.TrimSpace(row[i])
		}
	}

	// Canonical field values. Many-to-one source mappings are allowed; the
	// first non-empty source wins, walking the header row in order.
	fields := make(map[string]string)
	for _, h := range norm {
		dst, ok := colMap[h]
		if !ok {
			continue
		}
		if fields[dst] == "" {
			fields[dst] = raw[h]
		}
	}

	// Derived columns, then static columns, may fill or introduce fields.
	// Evaluation is dependency-ordered so an extraction may read another
	// derived column; a cycle leaves the source empty.
	names := make([]string, 0, len(def.DerivedColumns))
	for name := range def.DerivedColumns {
		names = append(names, name)
	}
	sort.Strings(names)
	seen := make(map[string]bool, len(names))
	var evalOne func(name string) error
	evalOne = func(name string) error {
		if seen[name] {
			return nil
		}
		seen[name] = true
		dc := def.DerivedColumns[name]
		if dc.Type == schema.DerivedExtract && raw[schema.NormalizeHeader(dc.Column)] == "" {
			if _, ok := def.DerivedColumns[dc.Column]; ok {
				if err := evalOne(dc.Column); err != nil {
					return err
				}
			}
		}
		v, err := evalDerived(&dc, raw, fields)
		if err != nil {
			return err
		}
		fields[name] = v
		return nil
	}
	for _, name := range names {
		if err := evalOne(name); err != nil {
			return model.CanonicalTransaction{}, err
		}
	}
	for name, v := range def.ExtraStaticCols {
		fields[name] = v
	}

	txn := model.CanonicalTransaction{
		OriginalDescription: fields["description"],
		Merchant:            fields["merchant"],
		Category:            fields["category"],
		Account:             fields["account"],
		AccountLast4:        fields["account_last4"],
		AccountType:         fields["account_type"],
		Institution:         fields["institution"],
		Owner:               file.Owner,
		DataSourceName:      def.Name,
		Source:              def.ID,
		Extras:              map[string]string{},
	}
	if s := fields["source"]; s != "" {
		txn.Source = s
	}

	// Date: unparsable dates flag the row, never drop it.
	if d, err := time.Parse(def.DateFormat, fields["date"]); err == nil {
		txn.Date = d
	} else {
		txn.Quality = model.QualityBadDate
	}

	// Amount: clean, optionally extract, then apply the sign rule.
	amt, err := ParseAmount(fields["amount"], def.AmountRegexp())
	if err != nil {
		if txn.Quality == model.QualityOK {
			txn.Quality = model.QualityBadAmount
		}
	} else {
		txn.Amount = applySign(amt, &def.SignRule, raw)
	}

	if s := fields["allowed_amount"]; s != "" {
		if v, err := ParseAmount(s, nil); err == nil {
			txn.AllowedAmount = decimal.NewNullDecimal(v)
		}
	}

	// Everything unmapped is preserved verbatim, keyed by original header,
	// unless explicitly ignored.
	for i, h := range norm {
		if i >= len(row) || ignore[h] {
			continue
		}
		if _, ok := colMap[h]; ok {
			continue
		}
		txn.Extras[file.Headers[i]] = row[i]
	}
	// Non-canonical derived fields land in Extras too.
	for name, v := range fields {
		if !schema.IsCanonicalField(name) {
			txn.Extras[name] = v
		}
	}

	return txn, nil
}

func evalDerived(dc *schema.DerivedColumn, raw, fields map[string]string) (string, error) {
	switch dc.Type {
	case schema.DerivedStatic:
		return dc.Value, nil
	case schema.DerivedExtract:
		src := raw[schema.NormalizeHeader(dc.Column)]
		if src == "" {
			src = fields[dc.Column]
		}
		m := dc.Regexp().FindStringSubmatch(src)
		if len(m) < 2 {
			return "", nil
		}
		return m[1], nil
	default:
		// validated at load time
		return "", fmt.Errorf("unknown derived column type %q", dc.Type)
	}
}

var currencyRunes = strings.NewReplacer("$", "", "€", "", "£", "", ",", "", " ", "")

var numberRe = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// ParseAmount cleans a raw amount string: currency symbols and thousands
// separators stripped, parentheses read as negative, an optional extraction
// regex applied first (capture group 1, falling back to the whole match).
func ParseAmount(s string, extract *regexp.Regexp) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if extract != nil {
		m := extract.FindStringSubmatch(s)
		switch {
		case len(m) >= 2:
			s = m[1]
		case len(m) == 1:
			s = m[0]
		}
	}

	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = currencyRunes.Replace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	if m := numberRe.FindString(s); m != "" {
		s = m
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

var withdrawalRe = regexp.MustCompile(`(?i)withdrawal|debit`)

func applySign(amt decimal.Decimal, rule *schema.SignRule, raw map[string]string) decimal.Decimal {
	switch rule.Type {
	case schema.SignAsIs:
		return amt
	case schema.SignFlipIfPositive:
		if amt.Sign() >= 0 {
			return amt.Neg()
		}
		return amt
	case schema.SignFlipIfWithdrawal:
		if withdrawalRe.MatchString(raw[schema.NormalizeHeader(rule.Column)]) {
			return amt.Neg()
		}
		return amt
	case schema.SignFlipIfMatches:
		if rule.Regexp().MatchString(raw[schema.NormalizeHeader(rule.Column)]) {
			return amt.Neg()
		}
		return amt
	}
	return amt
}
