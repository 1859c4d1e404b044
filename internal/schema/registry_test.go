package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchemas = `
schemas:
  - id: chase_checking
    schema_name: Chase checking export
    file_pattern: "(?i)chase.*\\.csv$"
    date_format: "01/02/2006"
    header_signature: [date, description, amount]
    column_map:
      date: date
      description: description
      amount: amount
    sign_rule:
      type: as_is
  - id: copilot_feed
    schema_name: Copilot aggregator feed
    date_format: "2006-01-02"
    header_signature: [date, name, amount, status, category, account]
    column_map:
      date: date
      name: description
      amount: amount
      category: category
      account: account
    sign_rule:
      type: flip_if_positive
  - id: chase_card
    schema_name: Chase card export
    file_pattern: "(?i)chase_card.*\\.csv$"
    date_format: "01/02/2006"
    header_signature: [date, description, amount, type]
    column_map:
      date: date
      description: description
      amount: amount
    sign_rule:
      type: as_is
`

func loadTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := ParseRegistry([]byte(testSchemas))
	require.NoError(t, err)
	return r
}

func TestMatch_ByFilenameAndHeaders(t *testing.T) {
	r := loadTestRegistry(t)

	def, err := r.Match("Chase1234_Activity.csv", []string{"Date", "Description", "Amount"})
	require.NoError(t, err)
	assert.Equal(t, "chase_checking", def.ID)
}

func TestMatch_FullSignatureWithoutFilePattern(t *testing.T) {
	r := loadTestRegistry(t)

	headers := []string{"date", "name", "amount", "status", "category", "account"}
	def, err := r.Match("export-2024-07.csv", headers)
	require.NoError(t, err)
	assert.Equal(t, "copilot_feed", def.ID)
}

func TestMatch_PartialSignatureWithoutFilePatternFails(t *testing.T) {
	r := loadTestRegistry(t)

	// Five of six copilot headers, nothing else matches: must not guess.
	headers := []string{"date", "name", "amount", "status", "category"}
	_, err := r.Match("export-2024-07.csv", headers)
	assert.ErrorIs(t, err, ErrSchemaNotFound)
}

func TestMatch_TieBrokenByLongerFilePattern(t *testing.T) {
	r := loadTestRegistry(t)

	// chase_card files also match the chase_checking pattern and carry a
	// superset of its signature. The longer pattern must win.
	headers := []string{"Date", "Description", "Amount", "Type"}
	def, err := r.Match("chase_card_2024.csv", headers)
	require.NoError(t, err)
	assert.Equal(t, "chase_card", def.ID)
}

func TestMatch_Deterministic(t *testing.T) {
	r := loadTestRegistry(t)

	headers := []string{"Date", "Description", "Amount"}
	first, err := r.Match("chase_export.csv", headers)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		got, err := r.Match("chase_export.csv", headers)
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID)
	}
}

func TestMatch_HeaderAliases(t *testing.T) {
	r := loadTestRegistry(t)

	// "Txn Date" normalizes to "date" via the alias table.
	def, err := r.Match("chase_jan.csv", []string{"Txn Date", "Description", "Amount"})
	require.NoError(t, err)
	assert.Equal(t, "chase_checking", def.ID)
}

func TestParseRegistry_UnknownSignRule(t *testing.T) {
	_, err := ParseRegistry([]byte(`
schemas:
  - id: bad
    schema_name: Bad
    date_format: "2006-01-02"
    header_signature: [date]
    column_map: {date: date}
    sign_rule:
      type: flip_sometimes
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown sign rule")
}

func TestParseRegistry_SignRuleMissingColumn(t *testing.T) {
	_, err := ParseRegistry([]byte(`
schemas:
  - id: bad
    schema_name: Bad
    date_format: "2006-01-02"
    header_signature: [date]
    column_map: {date: date}
    sign_rule:
      type: flip_if_column_value_matches
      pattern: debit
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires column and pattern")
}

func TestParseRegistry_UnknownCanonicalField(t *testing.T) {
	_, err := ParseRegistry([]byte(`
schemas:
  - id: bad
    schema_name: Bad
    date_format: "2006-01-02"
    header_signature: [date]
    column_map: {date: not_a_field}
    sign_rule:
      type: as_is
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown canonical field")
}

func TestParseRegistry_DuplicateID(t *testing.T) {
	_, err := ParseRegistry([]byte(`
schemas:
  - id: dup
    schema_name: A
    date_format: "2006-01-02"
    header_signature: [date]
    column_map: {date: date}
    sign_rule: {type: as_is}
  - id: dup
    schema_name: B
    date_format: "2006-01-02"
    header_signature: [date]
    column_map: {date: date}
    sign_rule: {type: as_is}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate schema id")
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "date", NormalizeHeader("  Transaction Date "))
	assert.Equal(t, "description", NormalizeHeader("Memo"))
	assert.Equal(t, "amount", NormalizeHeader("Debit/Credit"))
	assert.Equal(t, "running balance", NormalizeHeader("Running   Balance"))
}
