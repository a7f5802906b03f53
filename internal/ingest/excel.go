package ingest

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/leapstack-labs/duckboard/pkg/core"
	"github.com/xuri/excelize/v2"
)

// readWorkbook reads every sheet of an .xlsx upload, in workbook order.
// The first row of each sheet is its header.
func readWorkbook(data []byte) Result {
	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return Result{Type: core.TypeError, Detail: fmt.Sprintf("error reading excel file: %v", err)}
	}
	defer func() { _ = wb.Close() }()

	var (
		sheets []SheetTable
		blank  []string
	)
	for _, name := range wb.GetSheetList() {
		rows, err := wb.GetRows(name)
		if err != nil {
			return Result{Type: core.TypeError, Detail: fmt.Sprintf("error reading excel file: sheet %q: %v", name, err)}
		}
		table := sheetTable(rows)
		if len(table.Columns) == 0 {
			blank = append(blank, name)
			continue
		}
		sheets = append(sheets, SheetTable{Name: name, Table: table})
	}

	if len(sheets) == 0 {
		if len(blank) > 0 {
			return Result{Type: core.TypeError, Detail: "error reading excel file: every sheet is blank"}
		}
		return Result{Type: core.TypeError, Detail: "error reading excel file: workbook has no sheets"}
	}
	res := Result{Sheets: sheets, Type: core.TypeXLSX}
	if len(blank) > 0 {
		res.Detail = "skipped blank sheets: " + strings.Join(blank, ", ")
	}
	return res
}

// sheetTable squares off ragged rows. Blank header cells become "Unnamed: i".
func sheetTable(rows [][]string) *core.Table {
	if len(rows) == 0 {
		return &core.Table{}
	}

	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}

	header := make([]string, width)
	copy(header, rows[0])
	for i, h := range header {
		if h == "" {
			header[i] = fmt.Sprintf("Unnamed: %d", i)
		}
	}

	table := &core.Table{Columns: RenameDuplicates(header)}
	for _, r := range rows[1:] {
		cells := make([]string, width)
		copy(cells, r)
		table.Rows = append(table.Rows, cells)
	}
	return table
}
