package parser

import (
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/io-crosscheck/backend/internal/crosscheck"
	"github.com/io-crosscheck/backend/internal/models"
)

// DefaultIOListSheet is the worksheet the facility IO list lives on when
// the caller doesn't name one.
const DefaultIOListSheet = "ESCO List"

// ParseIOList parses a facility IO list from an XLSX workbook.
//
// The header row is located by scanning for a cell containing "panel";
// everything above it (title blocks, revision tables) is skipped. Rows
// carrying no device tag, IO tag, or PLC address are layout filler and
// are dropped. The address format is detected per row so the matching
// cascade doesn't re-derive it.
func ParseIOList(filePath, sheetName string) ([]*models.IODevice, error) {
	if sheetName == "" {
		sheetName = DefaultIOListSheet
	}

	wb, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("open io list: %w", err)
	}
	defer wb.Close()

	rows, err := wb.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheetName, err)
	}

	return devicesFromRows(rows)
}

// ParseIOListCSV parses the CSV flavor of the IO list, same column
// conventions as the XLSX sheet.
func ParseIOListCSV(data []byte) ([]*models.IODevice, error) {
	reader := csv.NewReader(strings.NewReader(decodeLatin1(data)))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse io list csv: %w", err)
	}
	return devicesFromRows(records)
}

func devicesFromRows(rows [][]string) ([]*models.IODevice, error) {
	devices := make([]*models.IODevice, 0, len(rows))
	var header map[string]int

	for i, row := range rows {
		rowNum := i + 1
		cells := make([]string, len(row))
		for j, c := range row {
			cells[j] = strings.TrimSpace(c)
		}

		if header == nil {
			for _, c := range cells {
				if strings.Contains(strings.ToLower(c), "panel") {
					header = make(map[string]int, len(cells))
					for col, h := range cells {
						header[strings.ToLower(h)] = col
					}
					break
				}
			}
			continue
		}

		col := func(name string) string {
			idx, ok := header[name]
			if !ok || idx >= len(cells) {
				return ""
			}
			return cells[idx]
		}

		if col("device tag") == "" && col("io tag") == "" && col("plc io address") == "" {
			continue
		}

		plcAddress := col("plc io address")
		addrFormat := crosscheck.DetectAddressFormat(plcAddress)

		devices = append(devices, &models.IODevice{
			Panel:         col("panel"),
			Rack:          col("rack"),
			Group:         col("group"),
			Slot:          col("slot"),
			Channel:       col("channel"),
			PLCAddress:    plcAddress,
			IOTag:         col("io tag"),
			DeviceTag:     col("device tag"),
			ModuleType:    col("module type"),
			Module:        col("module"),
			RangeLow:      col("range low"),
			RangeHigh:     col("range high"),
			Units:         col("units"),
			AddressFormat: addrFormat,
			SourceRow:     rowNum,
		})
	}

	if header == nil {
		return nil, fmt.Errorf("parse io list: no header row containing \"panel\"")
	}
	return devices, nil
}
