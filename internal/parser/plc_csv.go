package parser

import (
	"encoding/csv"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/io-crosscheck/backend/internal/models"
)

// recordTypes maps the TYPE column of an RSLogix CSV export to a record
// type. Anything else on a data row is ignored.
var recordTypes = map[string]models.RecordType{
	"TAG":      models.RecordTag,
	"COMMENT":  models.RecordComment,
	"ALIAS":    models.RecordAlias,
	"RCOMMENT": models.RecordRComment,
}

// baseNameSuffixPattern strips the trailing :I, :O, :C, :S, :I1 etc.
// connection qualifier from a tag name.
var baseNameSuffixPattern = regexp.MustCompile(`(?i):[IOCS]\d*$`)

// ExtractBaseName returns the tag name without its connection qualifier:
// "E300_P621:I" -> "E300_P621".
func ExtractBaseName(name string) string {
	return baseNameSuffixPattern.ReplaceAllString(strings.TrimSpace(name), "")
}

// ParsePLCCSV parses an RSLogix 5000 CSV tag export file.
//
// The export is non-standard CSV: a preamble before the header row, mixed
// TAG/COMMENT/ALIAS/RCOMMENT record types, quoted multi-line descriptions,
// and latin-1 bytes in description text. Column positions come from the
// header row (the one whose first cell is TYPE). RCOMMENT records are rung
// comments, not tag data, and are skipped.
func ParsePLCCSV(filePath string) ([]*models.PLCTag, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read plc csv: %w", err)
	}
	return ParsePLCCSVBytes(data)
}

// ParsePLCCSVBytes parses an RSLogix CSV export already held in memory.
func ParsePLCCSVBytes(data []byte) ([]*models.PLCTag, error) {
	reader := csv.NewReader(strings.NewReader(decodeLatin1(data)))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse plc csv: %w", err)
	}

	tags := make([]*models.PLCTag, 0, len(records))
	var header map[string]int

	for i, row := range records {
		recordNum := i + 1
		if len(row) == 0 {
			continue
		}

		if header == nil {
			if strings.ToUpper(strings.TrimSpace(row[0])) == "TYPE" {
				header = make(map[string]int, len(row))
				for col, cell := range row {
					header[strings.ToUpper(strings.TrimSpace(cell))] = col
				}
			}
			continue
		}

		recordType, ok := recordTypes[strings.ToUpper(strings.TrimSpace(row[0]))]
		if !ok || recordType == models.RecordRComment {
			continue
		}

		col := func(name string) string {
			idx, ok := header[name]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		name := col("NAME")
		tags = append(tags, &models.PLCTag{
			RecordType:  recordType,
			Name:        name,
			BaseName:    ExtractBaseName(name),
			Description: col("DESCRIPTION"),
			Datatype:    col("DATATYPE"),
			Scope:       col("SCOPE"),
			Specifier:   col("SPECIFIER"),
			SourceLine:  recordNum,
		})
	}

	if header == nil {
		return nil, fmt.Errorf("parse plc csv: no header row starting with TYPE")
	}
	return tags, nil
}

// decodeLatin1 converts raw export bytes to a UTF-8 string. RSLogix
// writes latin-1; bytes above 0x7F map one-to-one onto code points, so
// the conversion can never fail.
func decodeLatin1(data []byte) string {
	ascii := true
	for _, b := range data {
		if b >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		return string(data)
	}
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes)
}
