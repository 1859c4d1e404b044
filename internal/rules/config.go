// Package rules classifies canonical transactions and computes signed
// per-person net effects under the configured expense-sharing rules.
package rules

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Override effect types. The set is closed; anything else fails the load.
const (
	EffectMultiply   = "multiply"    // scale the shareable amount by factor
	EffectAssignFull = "assign_full" // the named person bears the whole shareable amount
	EffectExempt     = "exempt"      // the named person owes nothing for this row
	EffectReview     = "review"      // route to the manual-review queue
)

// OverrideRule maps a description phrase to a declared effect. Rules are
// evaluated in order before the default split formulas; first match wins.
// The person may come from the rule or from capture group 1 of the pattern.
type OverrideRule struct {
	Pattern string  `yaml:"pattern"`
	Effect  string  `yaml:"effect"`
	Person  string  `yaml:"person,omitempty"`
	Factor  float64 `yaml:"factor,omitempty"`

	re *regexp.Regexp
}

// RentConfig drives the special rent allocation.
type RentConfig struct {
	Pattern           string             `yaml:"pattern"`
	Baseline          float64            `yaml:"baseline"`
	VarianceThreshold float64            `yaml:"variance_threshold"`
	Split             map[string]float64 `yaml:"split"` // person -> percent of full rent

	re *regexp.Regexp
}

// Config is the business-rules configuration: an immutable snapshot loaded
// once before any work begins.
type Config struct {
	Persons            []string           `yaml:"persons"` // exactly two
	SettlementKeywords []string           `yaml:"settlement_keywords"`
	DefaultSplit       map[string]float64 `yaml:"default_split"` // person -> percent
	Rent               RentConfig         `yaml:"rent"`
	PersonalPatterns   []string           `yaml:"personal_patterns,omitempty"`
	Overrides          []OverrideRule     `yaml:"overrides,omitempty"`
	ModifierMarker     string             `yaml:"modifier_marker,omitempty"`
	OutlierAmount      float64            `yaml:"outlier_amount,omitempty"`
	SourcePriority     []string           `yaml:"source_priority,omitempty"`

	personalRes []*regexp.Regexp
	markerRe    *regexp.Regexp
}

// Load reads business rules from a YAML file. Any problem is fatal: the
// batch must not start on a half-valid rule set.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading business rules: %w", err)
	}
	return Parse(data)
}

// Parse builds and validates a Config from raw YAML.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing business rules: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.Persons) != 2 {
		return fmt.Errorf("business rules: need exactly two persons, got %d", len(c.Persons))
	}
	for i, p := range c.Persons {
		c.Persons[i] = strings.ToLower(strings.TrimSpace(p))
	}

	if c.DefaultSplit == nil {
		c.DefaultSplit = map[string]float64{c.Persons[0]: 50, c.Persons[1]: 50}
	}
	if err := validateSplit(c.DefaultSplit, c.Persons, "default_split"); err != nil {
		return err
	}

	if c.Rent.Pattern != "" {
		re, err := regexp.Compile("(?i)" + c.Rent.Pattern)
		if err != nil {
			return fmt.Errorf("business rules: rent pattern: %w", err)
		}
		c.Rent.re = re
		if err := validateSplit(c.Rent.Split, c.Persons, "rent split"); err != nil {
			return err
		}
	}

	for _, p := range c.PersonalPatterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return fmt.Errorf("business rules: personal pattern %q: %w", p, err)
		}
		c.personalRes = append(c.personalRes, re)
	}

	for i := range c.Overrides {
		o := &c.Overrides[i]
		re, err := regexp.Compile("(?i)" + o.Pattern)
		if err != nil {
			return fmt.Errorf("business rules: override %d pattern: %w", i, err)
		}
		o.re = re
		switch o.Effect {
		case EffectMultiply:
			if o.Factor <= 0 {
				return fmt.Errorf("business rules: override %d: multiply needs a positive factor", i)
			}
		case EffectAssignFull, EffectExempt:
			if o.Person != "" && !c.isPerson(o.Person) {
				return fmt.Errorf("business rules: override %d: unknown person %q", i, o.Person)
			}
			if o.Person == "" && re.NumSubexp() == 0 {
				return fmt.Errorf("business rules: override %d: %s needs a person or a capture group", i, o.Effect)
			}
		case EffectReview:
		default:
			return fmt.Errorf("business rules: override %d: unknown effect %q", i, o.Effect)
		}
	}

	if c.ModifierMarker != "" {
		re, err := regexp.Compile("(?i)" + c.ModifierMarker)
		if err != nil {
			return fmt.Errorf("business rules: modifier_marker: %w", err)
		}
		c.markerRe = re
	}

	return nil
}

func validateSplit(split map[string]float64, persons []string, what string) error {
	if len(split) == 0 {
		return fmt.Errorf("business rules: %s is empty", what)
	}
	normalized := make(map[string]float64, len(split))
	total := 0.0
	for p, pct := range split {
		normalized[strings.ToLower(strings.TrimSpace(p))] = pct
		total += pct
	}
	for p, pct := range normalized {
		split[p] = pct
	}
	for _, p := range persons {
		if _, ok := normalized[p]; !ok {
			return fmt.Errorf("business rules: %s missing person %q", what, p)
		}
	}
	if total < 99.99 || total > 100.01 {
		return fmt.Errorf("business rules: %s percentages sum to %.2f, want 100", what, total)
	}
	return nil
}

func (c *Config) isPerson(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	return name == c.Persons[0] || name == c.Persons[1]
}

// Other returns the counterpart of a person.
func (c *Config) Other(person string) string {
	if strings.EqualFold(person, c.Persons[0]) {
		return c.Persons[1]
	}
	return c.Persons[0]
}

// Default returns a two-person rule set with a 50/50 default split, suitable
// for init scaffolding.
func Default(personA, personB string) *Config {
	return &Config{
		Persons:            []string{personA, personB},
		SettlementKeywords: []string{"venmo", "zelle"},
		DefaultSplit:       map[string]float64{personA: 50, personB: 50},
		Rent: RentConfig{
			Pattern: `\brent\b`,
			Split:   map[string]float64{personA: 50, personB: 50},
		},
	}
}

// Save writes the configuration as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling business rules: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing business rules: %w", err)
	}
	return nil
}
