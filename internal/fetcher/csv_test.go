package fetcher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV_Basic(t *testing.T) {
	input := "First Name,Last Name,Company\nJohn,Smith,Acme Corp\nJane,Doe,Globex\n"

	rows, err := ReadCSV(strings.NewReader(input), CSVOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"First Name", "Last Name", "Company"}, rows[0])
	assert.Equal(t, []string{"Jane", "Doe", "Globex"}, rows[2])
}

func TestReadCSV_VariableFieldCounts(t *testing.T) {
	input := "Notes:\n\"When exporting your connection data\"\n\nFirst Name,Last Name,Company\nJohn,Smith,Acme Corp\n"

	rows, err := ReadCSV(strings.NewReader(input), CSVOptions{LazyQuotes: true})
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"Notes:"}, rows[0])
	assert.Equal(t, []string{"First Name", "Last Name", "Company"}, rows[3])
}

func TestReadCSV_TrimSpace(t *testing.T) {
	input := "a, b ,c\n 1 ,2, 3\n"

	rows, err := ReadCSV(strings.NewReader(input), CSVOptions{TrimSpace: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, rows[0])
	assert.Equal(t, []string{"1", "2", "3"}, rows[1])
}

func TestReadCSV_CustomDelimiter(t *testing.T) {
	input := "a|b|c\n1|2|3\n"

	rows, err := ReadCSV(strings.NewReader(input), CSVOptions{Delimiter: '|'})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"1", "2", "3"}, rows[1])
}

func TestReadCSV_Empty(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader(""), CSVOptions{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}
