package loader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"diary-service/internal/models"
)

var errEmptyTable = errors.New("no header or data rows")

// decodeXLSX reads the first sheet of a spreadsheet. Row one is the header.
// A header with zero data rows is a valid table (a diary day with no
// entries); the no-rows heuristic belongs to the CSV decoders, where it
// drives the UTF-8 to Latin-1 fallback.
func decodeXLSX(data []byte) (*models.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errEmptyTable
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errEmptyTable
	}

	header := make([]string, len(rows[0]))
	for i, c := range rows[0] {
		header[i] = strings.TrimSpace(c)
	}

	table := &models.Table{Columns: header}
	for _, row := range rows[1:] {
		table.Records = append(table.Records, recordFromRow(header, row))
	}
	return table, nil
}

// decodeCSVUTF8 parses comma-delimited text. Each physical line is parsed
// independently so that one malformed line (bad quoting, invalid UTF-8) is
// skipped instead of poisoning the remainder. Quoted fields therefore cannot
// span lines; diary exports do not use them that way.
func decodeCSVUTF8(data []byte) (*models.Table, error) {
	return decodeCSVLines(data, func(line []byte) (string, bool) {
		if !utf8.Valid(line) {
			return "", false
		}
		return string(line), true
	})
}

// decodeCSVLatin1 is the last-resort decoder for single-byte legacy exports.
// Every byte is valid Latin-1, so only structurally malformed lines are
// skipped.
func decodeCSVLatin1(data []byte) (*models.Table, error) {
	return decodeCSVLines(data, func(line []byte) (string, bool) {
		s, err := charmap.ISO8859_1.NewDecoder().String(string(line))
		if err != nil {
			return "", false
		}
		return s, true
	})
}

func decodeCSVLines(data []byte, decodeLine func([]byte) (string, bool)) (*models.Table, error) {
	lines := splitLines(data)

	var header []string
	table := &models.Table{}
	for _, raw := range lines {
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		line, ok := decodeLine(raw)
		if !ok {
			continue // malformed encoding: skip, don't fail
		}
		fields, err := parseCSVLine(line)
		if err != nil {
			continue // malformed structure: skip, don't fail
		}
		if header == nil {
			header = make([]string, len(fields))
			for i, c := range fields {
				header[i] = strings.TrimSpace(c)
			}
			table.Columns = header
			continue
		}
		table.Records = append(table.Records, recordFromRow(header, fields))
	}

	if header == nil || len(table.Records) == 0 {
		return nil, errEmptyTable
	}
	return table, nil
}

func parseCSVLine(line string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	return r.Read()
}

func splitLines(data []byte) [][]byte {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF}) // strip UTF-8 BOM
	lines := bytes.Split(data, []byte("\n"))
	for i, l := range lines {
		lines[i] = bytes.TrimSuffix(l, []byte("\r"))
	}
	return lines
}

// recordFromRow maps a positional row onto the known diary columns. Rows
// shorter than the header are padded; extra cells beyond the header and
// columns the pipeline does not know about are dropped.
func recordFromRow(header []string, row []string) models.DiaryRecord {
	cell := func(name string) string {
		for i, col := range header {
			if col != name {
				continue
			}
			if i < len(row) {
				return row[i]
			}
			return ""
		}
		return ""
	}

	return models.DiaryRecord{
		From:            cell(models.ColFrom),
		Until:           cell(models.ColUntil),
		Ring:            cell(models.ColRing),
		Category:        cell(models.ColCategory),
		Description:     cell(models.ColDescription),
		Shift:           cell(models.ColShift),
		Duration:        cell(models.ColDuration),
		IgnoreEntry:     models.FlagValue(cell(models.ColIgnoreEntry)),
		InternalUseOnly: models.FlagValue(cell(models.ColInternalUseOnly)),
	}
}
