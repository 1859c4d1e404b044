package schema

import (
	"fmt"
	"regexp"
)

// SignRuleType enumerates the closed set of amount sign conventions a source
// format can declare. Anything else is a load-time configuration error.
type SignRuleType string

const (
	SignAsIs             SignRuleType = "as_is"
	SignFlipIfPositive   SignRuleType = "flip_if_positive"
	SignFlipIfWithdrawal SignRuleType = "flip_if_withdrawal"
	SignFlipIfMatches    SignRuleType = "flip_if_column_value_matches"
)

// SignRule describes how a source's raw amount maps onto the canonical
// outflow-negative convention.
type SignRule struct {
	Type    SignRuleType `yaml:"type"`
	Column  string       `yaml:"column,omitempty"`  // companion column, for the column-driven variants
	Pattern string       `yaml:"pattern,omitempty"` // regex, for flip_if_column_value_matches

	re *regexp.Regexp
}

// Regexp returns the compiled pattern for flip_if_column_value_matches.
func (r *SignRule) Regexp() *regexp.Regexp { return r.re }

func (r *SignRule) validate(schemaID string) error {
	switch r.Type {
	case SignAsIs, SignFlipIfPositive:
		return nil
	case SignFlipIfWithdrawal:
		if r.Column == "" {
			return fmt.Errorf("schema %s: sign rule %s requires a column", schemaID, r.Type)
		}
		return nil
	case SignFlipIfMatches:
		if r.Column == "" || r.Pattern == "" {
			return fmt.Errorf("schema %s: sign rule %s requires column and pattern", schemaID, r.Type)
		}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return fmt.Errorf("schema %s: sign rule pattern: %w", schemaID, err)
		}
		r.re = re
		return nil
	case "":
		return fmt.Errorf("schema %s: missing sign rule", schemaID)
	default:
		return fmt.Errorf("schema %s: unknown sign rule %q", schemaID, r.Type)
	}
}

// Derived column rule types.
const (
	DerivedStatic  = "static_value"
	DerivedExtract = "regex_extract"
)

// DerivedColumn produces a new field from a constant or from a regex capture
// over another column.
type DerivedColumn struct {
	Type    string `yaml:"type"`
	Value   string `yaml:"value,omitempty"`   // static_value
	Column  string `yaml:"column,omitempty"`  // regex_extract source
	Pattern string `yaml:"pattern,omitempty"` // regex_extract pattern, capture group 1

	re *regexp.Regexp
}

// Regexp returns the compiled extraction pattern.
func (d *DerivedColumn) Regexp() *regexp.Regexp { return d.re }

func (d *DerivedColumn) validate(schemaID, name string) error {
	switch d.Type {
	case DerivedStatic:
		return nil
	case DerivedExtract:
		if d.Column == "" || d.Pattern == "" {
			return fmt.Errorf("schema %s: derived column %s requires column and pattern", schemaID, name)
		}
		re, err := regexp.Compile(d.Pattern)
		if err != nil {
			return fmt.Errorf("schema %s: derived column %s pattern: %w", schemaID, name, err)
		}
		d.re = re
		return nil
	default:
		return fmt.Errorf("schema %s: derived column %s has unknown type %q", schemaID, name, d.Type)
	}
}

// Definition describes one bank/card export format: how to recognize its
// files and how to map its columns onto the canonical schema. Immutable once
// loaded.
type Definition struct {
	ID              string                   `yaml:"id"`
	Name            string                   `yaml:"schema_name"`
	Notes           string                   `yaml:"notes,omitempty"`
	FilePattern     string                   `yaml:"file_pattern,omitempty"`
	DateFormat      string                   `yaml:"date_format"`
	HeaderSignature []string                 `yaml:"header_signature"`
	ColumnMap       map[string]string        `yaml:"column_map"`
	SignRule        SignRule                 `yaml:"sign_rule"`
	AmountRegex     string                   `yaml:"amount_regex,omitempty"`
	DerivedColumns  map[string]DerivedColumn `yaml:"derived_columns,omitempty"`
	ExtraStaticCols map[string]string        `yaml:"extra_static_cols,omitempty"`
	ExtrasIgnore    []string                 `yaml:"extras_ignore,omitempty"`

	fileRe   *regexp.Regexp
	amountRe *regexp.Regexp
}

// FileRegexp returns the compiled file pattern, or nil if none was given.
func (d *Definition) FileRegexp() *regexp.Regexp { return d.fileRe }

// AmountRegexp returns the compiled amount extraction pattern, or nil.
func (d *Definition) AmountRegexp() *regexp.Regexp { return d.amountRe }

// canonicalFields is the fixed master list of fields a column_map or derived
// column may target.
var canonicalFields = map[string]bool{
	"date":           true,
	"description":    true,
	"amount":         true,
	"merchant":       true,
	"category":       true,
	"account":        true,
	"account_last4":  true,
	"account_type":   true,
	"institution":    true,
	"source":         true,
	"allowed_amount": true,
}

// IsCanonicalField reports whether name is in the canonical field master list.
func IsCanonicalField(name string) bool { return canonicalFields[name] }

func (d *Definition) validate() error {
	if d.ID == "" {
		return fmt.Errorf("schema definition missing id")
	}
	if d.DateFormat == "" {
		return fmt.Errorf("schema %s: missing date_format", d.ID)
	}
	if len(d.HeaderSignature) == 0 {
		return fmt.Errorf("schema %s: empty header_signature", d.ID)
	}

	if d.FilePattern != "" {
		re, err := regexp.Compile(d.FilePattern)
		if err != nil {
			return fmt.Errorf("schema %s: file_pattern: %w", d.ID, err)
		}
		d.fileRe = re
	}

	if d.AmountRegex != "" {
		re, err := regexp.Compile(d.AmountRegex)
		if err != nil {
			return fmt.Errorf("schema %s: amount_regex: %w", d.ID, err)
		}
		d.amountRe = re
	}

	for src, dst := range d.ColumnMap {
		if !canonicalFields[dst] {
			return fmt.Errorf("schema %s: column_map %q targets unknown canonical field %q", d.ID, src, dst)
		}
	}

	if err := d.SignRule.validate(d.ID); err != nil {
		return err
	}

	for name, dc := range d.DerivedColumns {
		if err := dc.validate(d.ID, name); err != nil {
			return err
		}
		d.DerivedColumns[name] = dc
	}

	return nil
}
