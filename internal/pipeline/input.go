package pipeline

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/leadline-labs/mailscout-cli/internal/fetcher"
	"github.com/leadline-labs/mailscout-cli/internal/model"
)

// Input is a parsed contact file: the header row as it appeared in the file
// plus one Contact per data row.
type Input struct {
	Header   []string
	Contacts []model.Contact
}

// Column aliases recognized in contact exports. Matching is case-insensitive
// on the trimmed header cell.
var (
	firstNameCols = []string{"first name", "firstname", "first"}
	lastNameCols  = []string{"last name", "lastname", "last"}
	companyCols   = []string{"company", "company name", "organization", "organisation", "employer"}
)

// Read parses a contact file, dispatching on extension. ".xlsx" goes through
// the spreadsheet reader; everything else is treated as CSV.
func Read(path string) (*Input, error) {
	var rows [][]string
	var err error

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		rows, err = fetcher.ReadXLSX(path, fetcher.XLSXOptions{})
	} else {
		var f *os.File
		f, err = os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: open %s", path)
		}
		defer f.Close()
		rows, err = fetcher.ReadCSV(f, fetcher.CSVOptions{LazyQuotes: true, TrimSpace: true})
	}
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: read %s", path)
	}

	return parseRows(rows)
}

// parseRows locates the header row and converts the rows after it into
// contacts. LinkedIn exports put three preamble note rows before the header,
// so the header is found by content, not position.
func parseRows(rows [][]string) (*Input, error) {
	headerIdx := -1
	var cols columnMap
	for i, row := range rows {
		if m, ok := mapColumns(row); ok {
			headerIdx = i
			cols = m
			break
		}
	}
	if headerIdx < 0 {
		return nil, eris.New("pipeline: no recognizable header row (need first/last name columns)")
	}

	header := rows[headerIdx]
	in := &Input{Header: header}

	for _, row := range rows[headerIdx+1:] {
		if isBlank(row) {
			continue
		}

		raw := make(map[string]string, len(header))
		for j, col := range header {
			if j < len(row) {
				raw[col] = strings.TrimSpace(row[j])
			}
		}

		in.Contacts = append(in.Contacts, model.Contact{
			RowIndex:  len(in.Contacts),
			FirstName: cols.get(row, cols.first),
			LastName:  cols.get(row, cols.last),
			Company:   cols.get(row, cols.company),
			RawRow:    raw,
		})
	}

	return in, nil
}

type columnMap struct {
	first, last, company int
}

func (columnMap) get(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// mapColumns reports whether row looks like a contact header: it must name a
// first-name and a last-name column. A company column is optional since some
// exports omit it.
func mapColumns(row []string) (columnMap, bool) {
	m := columnMap{first: -1, last: -1, company: -1}
	for i, cell := range row {
		name := strings.ToLower(strings.TrimSpace(cell))
		switch {
		case m.first < 0 && contains(firstNameCols, name):
			m.first = i
		case m.last < 0 && contains(lastNameCols, name):
			m.last = i
		case m.company < 0 && contains(companyCols, name):
			m.company = i
		}
	}
	return m, m.first >= 0 && m.last >= 0
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
