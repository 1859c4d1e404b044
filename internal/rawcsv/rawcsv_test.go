package rawcsv

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead(t *testing.T) {
	in := strings.NewReader(`Date,Description,Amount
07/01/2024,KODO SUSHI,-6.00
07/02/2024,COFFEE,-4.50
`)
	f, err := Read(in, "chase.csv", "ryan")
	require.NoError(t, err)

	assert.Equal(t, "chase.csv", f.Name)
	assert.Equal(t, "ryan", f.Owner)
	assert.Equal(t, []string{"Date", "Description", "Amount"}, f.Headers)
	require.Len(t, f.Rows, 2)
	assert.Equal(t, "KODO SUSHI", f.Rows[0][1])
}

func TestRead_Empty(t *testing.T) {
	_, err := Read(strings.NewReader(""), "empty.csv", "ryan")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty file")
}

func TestRead_RaggedRowsTolerated(t *testing.T) {
	in := strings.NewReader("a,b,c\n1,2\n1,2,3,4\n")
	f, err := Read(in, "ragged.csv", "ryan")
	require.NoError(t, err)
	assert.Len(t, f.Rows, 2)
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "ryan"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "jordyn"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ryan", "chase.csv"), []byte("a\n1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "jordyn", "amex.CSV"), []byte("a\n1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "jordyn", "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stray.csv"), []byte("a\n1\n"), 0o644))

	files, err := Scan(dir)
	require.NoError(t, err)
	require.Len(t, files, 2, "ownerless and non-CSV files are skipped")

	owners := map[string]string{}
	for _, f := range files {
		owners[f.Name] = f.Owner
	}
	assert.Equal(t, "ryan", owners["chase.csv"])
	assert.Equal(t, "jordyn", owners["amex.CSV"])
}
