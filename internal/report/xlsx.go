package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/io-crosscheck/backend/internal/models"
)

const (
	detailSheet   = "Verification Detail"
	summarySheet  = "Summary"
	conflictSheet = "Conflicts"
	aliasSheet    = "L5X Aliases"
)

// classificationFill maps each outcome to its verification-sheet color.
// The palette matches what plant reviewers expect from the legacy reports.
var classificationFill = map[models.Classification]string{
	models.ClassBoth:       "92D050", // green
	models.ClassRackOnly:   "FFFF00", // yellow
	models.ClassIOListOnly: "FF0000", // red
	models.ClassPLCOnly:    "5B9BD5", // blue
	models.ClassConflict:   "FFC000", // orange
	models.ClassSpare:      "D9D9D9", // grey
}

var detailHeaders = []string{
	"Device Tag", "IO Tag", "Panel", "Rack", "Slot", "Channel",
	"PLC Address", "Module Type", "Classification", "Strategy",
	"Confidence", "PLC Tag Name", "PLC Description", "Conflict",
	"Audit Trail",
}

// classificationCol is the 1-based detail column that carries the row's
// outcome and gets the colored fill.
const classificationCol = 9

// detailValues flattens one result into the detail sheet column order.
func detailValues(r *models.MatchResult) []string {
	var io models.IODevice
	if r.IODevice != nil {
		io = *r.IODevice
	}
	var plc models.PLCTag
	if r.PLCTag != nil {
		plc = *r.PLCTag
	}

	strategy := ""
	confidence := ""
	if r.StrategyID != 0 {
		strategy = strconv.Itoa(r.StrategyID)
		confidence = string(r.Confidence)
	}
	conflict := ""
	if r.ConflictFlag {
		conflict = "YES"
	}

	return []string{
		io.DeviceTag, io.IOTag, io.Panel, io.Rack, io.Slot, io.Channel,
		io.PLCAddress, io.ModuleType, string(r.Classification), strategy,
		confidence, plc.Name, plc.Description, conflict,
		strings.Join(r.AuditTrail, " | "),
	}
}

// WriteXLSX renders the verification workbook: a colored detail sheet, a
// summary sheet, and a conflict sheet when any conflicts exist.
func WriteXLSX(results []*models.MatchResult, summary Summary, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName(f.GetSheetName(0), detailSheet)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Border:    thinBorder(),
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}
	cellStyle, err := f.NewStyle(&excelize.Style{Border: thinBorder()})
	if err != nil {
		return fmt.Errorf("creating cell style: %w", err)
	}

	classStyles := make(map[models.Classification]int, len(classificationFill))
	for cls, color := range classificationFill {
		id, err := f.NewStyle(&excelize.Style{
			Font:   &excelize.Font{Bold: true},
			Fill:   excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
			Border: thinBorder(),
		})
		if err != nil {
			return fmt.Errorf("creating %s style: %w", cls, err)
		}
		classStyles[cls] = id
	}

	widths := make([]int, len(detailHeaders))
	for col, h := range detailHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(detailSheet, cell, h)
		f.SetCellStyle(detailSheet, cell, cell, headerStyle)
		widths[col] = len(h)
	}

	for row, r := range results {
		for col, val := range detailValues(r) {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(detailSheet, cell, val)
			if col+1 == classificationCol {
				f.SetCellStyle(detailSheet, cell, cell, classStyles[r.Classification])
			} else {
				f.SetCellStyle(detailSheet, cell, cell, cellStyle)
			}
			if len(val) > widths[col] {
				widths[col] = len(val)
			}
		}
	}

	for col, width := range widths {
		name, _ := excelize.ColumnNumberToName(col + 1)
		if width > 48 {
			width = 48
		}
		f.SetColWidth(detailSheet, name, name, float64(width+2))
	}

	if err := writeSummarySheet(f, summary); err != nil {
		return err
	}
	if summary.Conflicts > 0 {
		if err := writeConflictSheet(f, results, headerStyle); err != nil {
			return err
		}
	}
	if len(summary.MsgTags) > 0 || len(summary.ConsumedTags) > 0 {
		if err := writeAliasSheet(f, summary, headerStyle); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, summary Summary) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("creating summary sheet: %w", err)
	}

	titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return fmt.Errorf("creating title style: %w", err)
	}
	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating bold style: %w", err)
	}

	f.SetCellValue(summarySheet, "A1", "IO Crosscheck — Summary Report")
	f.SetCellStyle(summarySheet, "A1", "A1", titleStyle)

	f.SetCellValue(summarySheet, "A3", "Classification")
	f.SetCellValue(summarySheet, "B3", "Count")
	f.SetCellValue(summarySheet, "C3", "Percentage")
	f.SetCellStyle(summarySheet, "A3", "C3", boldStyle)

	row := 4
	for _, cls := range classificationOrder {
		count := summary.Count(cls)
		if count == 0 {
			continue
		}
		f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), string(cls))
		f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), count)
		f.SetCellValue(summarySheet, fmt.Sprintf("C%d", row), summary.Percentage(count))
		row++
	}

	row++
	f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), "Total Devices")
	f.SetCellStyle(summarySheet, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), boldStyle)
	f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), summary.Total)

	row += 2
	f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), "Conflicts Requiring Review")
	f.SetCellStyle(summarySheet, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), boldStyle)
	f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), summary.Conflicts)

	f.SetColWidth(summarySheet, "A", "A", 30)
	return nil
}

func writeConflictSheet(f *excelize.File, results []*models.MatchResult, headerStyle int) error {
	if _, err := f.NewSheet(conflictSheet); err != nil {
		return fmt.Errorf("creating conflict sheet: %w", err)
	}

	headers := []string{
		"Device Tag", "IO Tag", "PLC Address", "IO Description",
		"PLC Description", "Audit Trail",
	}
	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(conflictSheet, cell, h)
		f.SetCellStyle(conflictSheet, cell, cell, headerStyle)
	}

	row := 2
	for _, r := range results {
		if !r.ConflictFlag {
			continue
		}
		var io models.IODevice
		if r.IODevice != nil {
			io = *r.IODevice
		}
		plcDesc := ""
		if r.PLCTag != nil {
			plcDesc = r.PLCTag.Description
		}
		values := []string{
			io.DeviceTag, io.IOTag, io.PLCAddress, io.DeviceTag,
			plcDesc, strings.Join(r.AuditTrail, " | "),
		}
		for col, val := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(conflictSheet, cell, val)
		}
		row++
	}
	return nil
}

// writeAliasSheet lists the MSG communication aliases and consumed tags
// from the L5X project so reviewers can trace inter-PLC traffic.
func writeAliasSheet(f *excelize.File, summary Summary, headerStyle int) error {
	if _, err := f.NewSheet(aliasSheet); err != nil {
		return fmt.Errorf("creating alias sheet: %w", err)
	}

	titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 12}})
	if err != nil {
		return fmt.Errorf("creating alias title style: %w", err)
	}

	row := 1
	if len(summary.MsgTags) > 0 {
		cell := fmt.Sprintf("A%d", row)
		f.SetCellValue(aliasSheet, cell, "MSG Communication Aliases")
		f.SetCellStyle(aliasSheet, cell, cell, titleStyle)
		row++

		for col, h := range []string{"Name", "Alias For", "Direction", "Description"} {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(aliasSheet, cell, h)
			f.SetCellStyle(aliasSheet, cell, cell, headerStyle)
		}
		row++
		for _, a := range summary.MsgTags {
			for col, val := range []string{a.Name, a.AliasFor, a.Direction, a.Description} {
				cell, _ := excelize.CoordinatesToCellName(col+1, row)
				f.SetCellValue(aliasSheet, cell, val)
			}
			row++
		}
		row++
	}

	if len(summary.ConsumedTags) > 0 {
		cell := fmt.Sprintf("A%d", row)
		f.SetCellValue(aliasSheet, cell, "Consumed Tags")
		f.SetCellStyle(aliasSheet, cell, cell, titleStyle)
		row++

		for col, h := range []string{"Name", "Alias For", "Description"} {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(aliasSheet, cell, h)
			f.SetCellStyle(aliasSheet, cell, cell, headerStyle)
		}
		row++
		for _, a := range summary.ConsumedTags {
			for col, val := range []string{a.Name, a.AliasFor, a.Description} {
				cell, _ := excelize.CoordinatesToCellName(col+1, row)
				f.SetCellValue(aliasSheet, cell, val)
			}
			row++
		}
	}

	f.SetColWidth(aliasSheet, "A", "B", 28)
	f.SetColWidth(aliasSheet, "D", "D", 40)
	return nil
}

func thinBorder() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Style: 1, Color: "000000"},
		{Type: "right", Style: 1, Color: "000000"},
		{Type: "top", Style: 1, Color: "000000"},
		{Type: "bottom", Style: 1, Color: "000000"},
	}
}
