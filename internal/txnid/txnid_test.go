package txnid

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func TestCompute_Deterministic(t *testing.T) {
	amt := decimal.RequireFromString("-6.00")
	a := Compute(date(2024, 7, 1), amt, "Kodo Sushi", "Chase", "1234")
	b := Compute(date(2024, 7, 1), amt, "Kodo Sushi", "Chase", "1234")
	assert.Equal(t, a, b)
	assert.Len(t, a, 32, "128 bits of hex")
}

func TestCompute_DescriptionNormalizationCollides(t *testing.T) {
	amt := decimal.RequireFromString("-6.00")
	a := Compute(date(2024, 7, 1), amt, "KODO SUSHI", "chase", "1234")
	b := Compute(date(2024, 7, 1), amt, "  kodo   sushi  ", "Chase", "1234")
	assert.Equal(t, a, b, "case and whitespace must not distinguish transactions")
}

func TestCompute_DistinctInputsDiffer(t *testing.T) {
	amt := decimal.RequireFromString("-6.00")
	base := Compute(date(2024, 7, 1), amt, "Kodo Sushi", "Chase", "1234")

	assert.NotEqual(t, base, Compute(date(2024, 7, 2), amt, "Kodo Sushi", "Chase", "1234"))
	assert.NotEqual(t, base, Compute(date(2024, 7, 1), decimal.RequireFromString("-6.01"), "Kodo Sushi", "Chase", "1234"))
	assert.NotEqual(t, base, Compute(date(2024, 7, 1), amt, "Kodo Sushi", "Amex", "1234"))
	assert.NotEqual(t, base, Compute(date(2024, 7, 1), amt, "Kodo Sushi", "Chase", "9999"))
}

func TestNormalizeDescription(t *testing.T) {
	assert.Equal(t, "kodo sushi san mateo", NormalizeDescription("KODO SUSHI - SAN MATEO"))
	assert.Equal(t, "payment 1234", NormalizeDescription("PAYMENT #1234"))
}

func TestCoreTokens_StripsReferenceNoise(t *testing.T) {
	toks := CoreTokens("KODO SUSHI REF 84412931 SAN MATEO", 4)
	assert.Equal(t, []string{"kodo", "sushi", "san", "mateo"}, toks)

	toks = CoreTokens("TRANSFER SEQ12345 ID9981 ACME", 4)
	assert.Equal(t, []string{"transfer", "acme"}, toks)
}

func TestCoreTokens_Window(t *testing.T) {
	toks := CoreTokens("one two three four five six", 4)
	assert.Equal(t, []string{"one", "two", "three", "four"}, toks)
}
