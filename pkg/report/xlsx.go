package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"code-intelligence.com/crashtriage/pkg/parser/sanitizer"
	"code-intelligence.com/crashtriage/pkg/record"
)

// Columns of the triage report, in order
var Columns = []string{
	"target",
	"input_file",
	"result",
	"sanitizer_error",
	"top_function",
	"source_hint",
	"return_code",
	"repro_cmd",
	"log_path",
	"google_query",
	"suspected_cve",
}

var columnWidths = []float64{10, 55, 10, 22, 28, 40, 10, 60, 45, 35, 18}

// Excel doesn't allow longer sheet names
const maxSheetNameLength = 31

// SheetName returns the name of the worksheet for the given mode.
func SheetName(mode string) string {
	name := "triage_" + mode
	if len(name) > maxSheetNameLength {
		name = name[:maxSheetNameLength]
	}
	return name
}

// WriteXLSX writes the records as a workbook with a single sheet to path.
func WriteXLSX(path, sheet string, records []*record.CrashRecord) error {
	return WriteFile(path, func(w io.Writer) error {
		return EncodeXLSX(w, sheet, records)
	})
}

// EncodeXLSX writes the records as a workbook with a single sheet to w.
func EncodeXLSX(w io.Writer, sheet string, records []*record.CrashRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	// A new workbook always contains the default sheet
	err := f.SetSheetName(f.GetSheetName(0), sheet)
	if err != nil {
		return errors.WithStack(err)
	}

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	err = f.SetSheetRow(sheet, "A1", &header)
	if err != nil {
		return errors.WithStack(err)
	}
	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.WithStack(err)
		}
		row, err := recordRow(rec)
		if err != nil {
			return errors.WithMessagef(err, "row %d", i+2)
		}
		err = f.SetSheetRow(sheet, cell, &row)
		if err != nil {
			return errors.WithStack(err)
		}
	}

	err = formatSheet(f, sheet, len(records))
	if err != nil {
		return err
	}

	return errors.WithStack(f.Write(w))
}

func recordRow(rec *record.CrashRecord) ([]interface{}, error) {
	values := []string{
		rec.Target,
		rec.InputFile,
		string(rec.Result),
		rec.SanitizerError,
		rec.TopFunction,
		rec.SourceHint,
		"",
		rec.ReproCmd,
		rec.LogPath,
		rec.SearchQuery,
		rec.SuspectedDefect,
	}
	row := make([]interface{}, len(values))
	for i, v := range values {
		if i == returnCodeColumn {
			row[i] = rec.ReturnCode
			continue
		}
		cell, err := encodeCell(v)
		if err != nil {
			return nil, errors.WithMessagef(err, "column %s", Columns[i])
		}
		row[i] = cell
	}
	return row, nil
}

const returnCodeColumn = 6

// encodeCell escapes value so that it is read back unchanged. Cells
// store characters which XML can't represent as "_xHHHH_" and the
// readers decode every such sequence, so a literal "_x" is stored as
// "_x005F_x". Values which don't fit into a cell are an error.
func encodeCell(value string) (string, error) {
	if !utf8.ValidString(value) {
		return "", errors.Errorf("%q is not valid UTF-8", value)
	}
	var b strings.Builder
	for i, r := range value {
		switch {
		case r == '_' && strings.HasPrefix(value[i+1:], "x"):
			b.WriteString("_x005F_")
		case r == '\r' || !isXMLChar(r):
			// XML parsers turn a literal "\r" into "\n"
			_, _ = fmt.Fprintf(&b, "_x%04X_", r)
		default:
			b.WriteRune(r)
		}
	}
	encoded := b.String()
	if n := utf8.RuneCountInString(encoded); n > excelize.TotalCellChars {
		return "", errors.Errorf("value has %d characters, a cell holds at most %d", n, excelize.TotalCellChars)
	}
	return encoded, nil
}

func isXMLChar(r rune) bool {
	return r == '\t' || r == '\n' || r == '\r' ||
		(r >= 0x20 && r <= 0xD7FF) ||
		(r >= 0xE000 && r <= 0xFFFD) ||
		r >= 0x10000
}

func formatSheet(f *excelize.File, sheet string, numRecords int) error {
	lastColumn, err := excelize.ColumnNumberToName(len(Columns))
	if err != nil {
		return errors.WithStack(err)
	}
	lastRow := strconv.Itoa(numRecords + 1)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return errors.WithStack(err)
	}
	err = f.SetCellStyle(sheet, "A1", lastColumn+"1", headerStyle)
	if err != nil {
		return errors.WithStack(err)
	}

	if numRecords > 0 {
		dataStyle, err := f.NewStyle(&excelize.Style{
			Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
		})
		if err != nil {
			return errors.WithStack(err)
		}
		err = f.SetCellStyle(sheet, "A2", lastColumn+lastRow, dataStyle)
		if err != nil {
			return errors.WithStack(err)
		}
	}

	for i, width := range columnWidths {
		column, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return errors.WithStack(err)
		}
		err = f.SetColWidth(sheet, column, column, width)
		if err != nil {
			return errors.WithStack(err)
		}
	}

	err = f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(f.AutoFilter(sheet, "A1:"+lastColumn+lastRow, nil))
}

// ReadXLSX reads the records from the first sheet of a workbook written
// by WriteXLSX. The scan flags are not part of the report, they are
// derived from the return code and the result.
func ReadXLSX(path string) ([]*record.CrashRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.Errorf("%s contains no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if len(rows) == 0 {
		return nil, errors.Errorf("%s: sheet %s is empty", path, sheets[0])
	}
	header := pad(rows[0])
	for i, c := range Columns {
		if header[i] != c {
			return nil, errors.Errorf("%s: unexpected column %q, expected %q", path, header[i], c)
		}
	}

	var records []*record.CrashRecord
	for i, row := range rows[1:] {
		row = pad(row)
		rc, err := strconv.Atoi(row[returnCodeColumn])
		if err != nil {
			return nil, errors.Errorf("%s: invalid return code %q in row %d", path, row[returnCodeColumn], i+2)
		}
		rec := &record.CrashRecord{
			Target:          row[0],
			InputFile:       row[1],
			Result:          sanitizer.Result(row[2]),
			SanitizerError:  row[3],
			TopFunction:     row[4],
			SourceHint:      row[5],
			ReturnCode:      rc,
			ReproCmd:        row[7],
			LogPath:         row[8],
			SearchQuery:     row[9],
			SuspectedDefect: row[10],
			Crashed:         rc != 0,
			SanitizerBug:    sanitizer.Result(row[2]) == sanitizer.ResultCrash,
		}
		records = append(records, rec)
	}
	return records, nil
}

// GetRows omits trailing empty cells
func pad(row []string) []string {
	for len(row) < len(Columns) {
		row = append(row, "")
	}
	return row
}
