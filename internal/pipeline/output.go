package pipeline

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/leadline-labs/mailscout-cli/internal/model"
)

// Columns appended to the mirrored input on output.
var resultColumns = []string{"Found Email", "Email Status", "Confidence", "Domain"}

// WriteCSV writes results in input order, mirroring the original columns and
// appending the discovery outcome.
func WriteCSV(w io.Writer, header []string, results []model.ContactResult) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(append(append([]string{}, header...), resultColumns...)); err != nil {
		return eris.Wrap(err, "pipeline: write header")
	}

	for _, r := range results {
		row := make([]string, 0, len(header)+len(resultColumns))
		for _, col := range header {
			row = append(row, r.Contact.RawRow[col])
		}
		row = append(row,
			r.ChosenEmail,
			string(r.Verdict.Status),
			strconv.FormatFloat(r.Verdict.Confidence, 'f', 2, 64),
			r.Domain,
		)
		if err := cw.Write(row); err != nil {
			return eris.Wrapf(err, "pipeline: write row %d", r.Contact.RowIndex)
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "pipeline: flush output")
}

// WriteCSVFile is WriteCSV against a file path.
func WriteCSVFile(path string, header []string, results []model.ContactResult) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "pipeline: create %s", path)
	}
	if err := WriteCSV(f, header, results); err != nil {
		f.Close()
		return err
	}
	return eris.Wrapf(f.Close(), "pipeline: close %s", path)
}
