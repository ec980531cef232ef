package pipeline

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadline-labs/mailscout-cli/internal/model"
)

func TestWriteCSV_MirrorsInputAndAppendsResults(t *testing.T) {
	header := []string{"First Name", "Last Name", "Company", "Position"}
	results := []model.ContactResult{
		{
			Contact: model.Contact{
				RowIndex: 0,
				RawRow: map[string]string{
					"First Name": "John", "Last Name": "Smith",
					"Company": "Acme Corp", "Position": "CEO",
				},
			},
			Domain:      "acme.com",
			ChosenEmail: "john.smith@acme.com",
			Verdict:     model.Verdict{Status: model.StatusValid, Confidence: 0.9},
		},
		{
			Contact: model.Contact{
				RowIndex: 1,
				RawRow:   map[string]string{"First Name": "Jane", "Last Name": "Doe"},
			},
			Verdict: model.Verdict{Status: model.StatusUnknown},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, header, results))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{
		"First Name", "Last Name", "Company", "Position",
		"Found Email", "Email Status", "Confidence", "Domain",
	}, rows[0])

	assert.Equal(t, []string{
		"John", "Smith", "Acme Corp", "CEO",
		"john.smith@acme.com", "valid", "0.90", "acme.com",
	}, rows[1])

	// Missing raw columns come out blank, not shifted.
	assert.Equal(t, []string{
		"Jane", "Doe", "", "",
		"", "unknown", "0.00", "",
	}, rows[2])
}

func TestWriteCSV_EmptyResults(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []string{"First Name", "Last Name"}, nil))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
