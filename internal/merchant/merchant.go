// Package merchant cleans free-text merchant/description fields into
// canonical merchant names and categories via an ordered regex rule table.
package merchant

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Rule maps a raw description pattern to a clean merchant name and category.
type Rule struct {
	Pattern  string `yaml:"pattern"`
	Merchant string `yaml:"merchant"`
	Category string `yaml:"category,omitempty"`

	re *regexp.Regexp
}

// Table is an immutable, ordered merchant rule set. First match wins.
type Table struct {
	rules []Rule
}

// Load reads merchant rules from a YAML file. A bad pattern fails the whole
// load; rule problems are fatal configuration errors.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading merchant rules: %w", err)
	}
	return Parse(data)
}

// Parse builds a Table from raw YAML.
func Parse(data []byte) (*Table, error) {
	var raw struct {
		Rules []Rule `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing merchant rules: %w", err)
	}

	for i := range raw.Rules {
		r := &raw.Rules[i]
		if r.Merchant == "" {
			return nil, fmt.Errorf("merchant rule %d: missing merchant", i)
		}
		re, err := regexp.Compile("(?i)" + r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("merchant rule %d (%q): %w", i, r.Pattern, err)
		}
		r.re = re
	}
	return &Table{rules: raw.Rules}, nil
}

// Empty returns a Table with no rules.
func Empty() *Table { return &Table{} }

// Len returns the number of rules.
func (t *Table) Len() int { return len(t.rules) }

// Apply returns the clean merchant name and category for a raw description.
// Rules are tried in order; the first match wins. ok is false when no rule
// matches.
func (t *Table) Apply(description string) (name, category string, ok bool) {
	for _, r := range t.rules {
		if r.re.MatchString(description) {
			return r.Merchant, r.Category, true
		}
	}
	return "", "", false
}
