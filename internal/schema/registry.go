package schema

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ErrSchemaNotFound is returned by Match when no definition clears the
// matching threshold for a file. The file is skipped; matching never guesses.
var ErrSchemaNotFound = errors.New("no schema matches file")

// partialMatchThreshold is the minimum header-signature score accepted when a
// filename pattern also matches. Without a filename pattern the full
// signature is required.
const partialMatchThreshold = 0.8

// Registry is an immutable snapshot of schema definitions. Reloading
// configuration produces a new Registry; an existing one is never mutated.
type Registry struct {
	defs []*Definition
}

// LoadRegistry reads schema definitions from a YAML file. Any invalid
// definition fails the whole load: schema problems are fatal configuration
// errors, caught before a single row is processed.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schemas: %w", err)
	}
	return ParseRegistry(data)
}

// ParseRegistry builds a Registry from raw YAML.
func ParseRegistry(data []byte) (*Registry, error) {
	var raw struct {
		Schemas []*Definition `yaml:"schemas"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing schemas: %w", err)
	}
	if len(raw.Schemas) == 0 {
		return nil, fmt.Errorf("no schema definitions found")
	}

	seen := make(map[string]bool)
	for _, d := range raw.Schemas {
		if err := d.validate(); err != nil {
			return nil, err
		}
		if seen[d.ID] {
			return nil, fmt.Errorf("duplicate schema id %q", d.ID)
		}
		seen[d.ID] = true
	}

	return &Registry{defs: raw.Schemas}, nil
}

// Definitions returns the loaded definitions in a stable (id) order.
func (r *Registry) Definitions() []*Definition {
	out := make([]*Definition, len(r.defs))
	copy(out, r.defs)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns the definition with the given id, or nil.
func (r *Registry) Get(id string) *Definition {
	for _, d := range r.defs {
		if d.ID == id {
			return d
		}
	}
	return nil
}

// Match resolves a file to exactly one schema definition from its name and
// header row. Matching is a pure function of its inputs: identical inputs
// always resolve to the identical definition.
//
// Scoring: fraction of the definition's header signature present in the
// normalized header set. A definition is a candidate when its filename
// pattern matches and its score clears partialMatchThreshold, or when it has
// no filename pattern and the full signature is present. Ties go to the
// longer (more specific) filename pattern, then to the lower id.
func (r *Registry) Match(filename string, headers []string) (*Definition, error) {
	headerSet := make(map[string]bool, len(headers))
	for _, h := range NormalizeHeaders(headers) {
		headerSet[h] = true
	}

	type candidate struct {
		def   *Definition
		score float64
	}
	var candidates []candidate

	for _, d := range r.defs {
		hits := 0
		for _, want := range d.HeaderSignature {
			if headerSet[NormalizeHeader(want)] {
				hits++
			}
		}
		score := float64(hits) / float64(len(d.HeaderSignature))

		fileOK := d.fileRe != nil && d.fileRe.MatchString(filename)
		switch {
		case fileOK && score >= partialMatchThreshold:
			candidates = append(candidates, candidate{d, score})
		case d.fileRe == nil && score == 1.0:
			candidates = append(candidates, candidate{d, score})
		}
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSchemaNotFound, filename)
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if len(a.def.FilePattern) != len(b.def.FilePattern) {
			return len(a.def.FilePattern) > len(b.def.FilePattern)
		}
		return a.def.ID < b.def.ID
	})
	return candidates[0].def, nil
}
