package report

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"code-intelligence.com/crashtriage/pkg/record"
	"code-intelligence.com/crashtriage/util/stringutil"
)

// ScanColumns is the header of the bulk scan CSV
var ScanColumns = []string{"file", "return_code", "crashed", "sanitizer_bug"}

// WriteScanCSVFile writes the scan rows as CSV to path.
func WriteScanCSVFile(path string, rows []*record.ScanRow) error {
	return WriteFile(path, func(w io.Writer) error {
		return WriteScanCSV(w, rows)
	})
}

// WriteScanCSV writes the scan rows as CSV with a header line to w.
func WriteScanCSV(w io.Writer, rows []*record.ScanRow) error {
	writer := csv.NewWriter(w)
	err := writer.Write(ScanColumns)
	if err != nil {
		return errors.WithStack(err)
	}
	for _, row := range rows {
		err = writer.Write([]string{
			row.File,
			strconv.Itoa(row.ReturnCode),
			stringutil.YesNo(row.Crashed),
			stringutil.YesNo(row.SanitizerBug),
		})
		if err != nil {
			return errors.WithStack(err)
		}
	}
	writer.Flush()
	return errors.WithStack(writer.Error())
}

// ReadScanCSV reads a scan CSV. The columns are looked up by the names
// in the header, so their order doesn't matter and unknown columns are
// ignored. Only the "file" column is required, missing flags are read
// as "NO".
func ReadScanCSV(r io.Reader) ([]*record.ScanRow, error) {
	reader := csv.NewReader(r)
	// Rows with a missing trailing column are tolerated
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New("scan CSV is empty")
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	index := map[string]int{}
	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	if _, ok := index["file"]; !ok {
		return nil, errors.Errorf("scan CSV has no \"file\" column, header: %s", strings.Join(header, ","))
	}

	field := func(fields []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[i])
	}

	var rows []*record.ScanRow
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.WithStack(err)
		}
		line, _ := reader.FieldPos(0)

		row := &record.ScanRow{File: field(fields, "file")}
		if rc := field(fields, "return_code"); rc != "" {
			row.ReturnCode, err = strconv.Atoi(rc)
			if err != nil {
				return nil, errors.Errorf("line %d: invalid return code %q", line, rc)
			}
		}
		row.Crashed, err = parseFlag(field(fields, "crashed"))
		if err != nil {
			return nil, errors.WithMessagef(err, "line %d", line)
		}
		row.SanitizerBug, err = parseFlag(field(fields, "sanitizer_bug"))
		if err != nil {
			return nil, errors.WithMessagef(err, "line %d", line)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseFlag(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	return stringutil.ParseYesNo(s)
}

// SanitizerBugFiles returns the file names of the rows which are
// flagged as sanitizer bugs, in the order of the rows.
func SanitizerBugFiles(rows []*record.ScanRow) []string {
	var files []string
	for _, row := range rows {
		if row.SanitizerBug && row.File != "" {
			files = append(files, row.File)
		}
	}
	return files
}
