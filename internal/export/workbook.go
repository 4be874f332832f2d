// Package export renders grade sheets and Dean's List snapshots as xlsx workbooks.
package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// SheetSpec describes one worksheet. Caption lines are written above the header.
type SheetSpec struct {
	Title   string
	Caption []string
	Header  []string
	Rows    [][]any
}

type Workbook struct {
	File *excelize.File
}

func NewWorkbook(sheets []SheetSpec) (*Workbook, error) {
	f := excelize.NewFile()
	used := map[string]bool{}
	for i, s := range sheets {
		name := uniqueSheetName(s.Title, used)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("new sheet: %w", err)
		}

		row := 1
		for _, line := range s.Caption {
			cell := fmt.Sprintf("A%d", row)
			if err := f.SetCellStr(name, cell, line); err != nil {
				return nil, fmt.Errorf("set cell %s: %w", cell, err)
			}
			row++
		}
		if len(s.Caption) > 0 {
			row++
		}
		headerRow := row

		header := make([]any, len(s.Header))
		for c, h := range s.Header {
			header[c] = h
		}
		if err := f.SetSheetRow(name, fmt.Sprintf("A%d", row), &header); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
		for _, r := range s.Rows {
			row++
			vals := r
			if err := f.SetSheetRow(name, fmt.Sprintf("A%d", row), &vals); err != nil {
				return nil, fmt.Errorf("write row %d: %w", row, err)
			}
		}
		if err := ApplyDefaultExcelFormatting(f, name, headerRow); err != nil {
			return nil, fmt.Errorf("format %s: %w", name, err)
		}
	}
	return &Workbook{File: f}, nil
}

// Bytes serializes the workbook.
func (w *Workbook) Bytes() ([]byte, error) {
	buf, err := w.File.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (w *Workbook) Close() error { return w.File.Close() }

// Excel limits sheet names to 31 characters and forbids a few symbols.
func sheetName(title string) string {
	name := invalidSheetRe.ReplaceAllString(cleanName(title), "_")
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}
	return name
}

// uniqueSheetName suffixes repeats with " (2)", " (3)" and so on. Excel
// compares sheet names case-insensitively.
func uniqueSheetName(title string, used map[string]bool) string {
	base := sheetName(title)
	name := base
	for n := 2; used[strings.ToLower(name)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		r := []rune(base)
		if len(r)+len(suffix) > 31 {
			r = r[:31-len(suffix)]
		}
		name = string(r) + suffix
	}
	used[strings.ToLower(name)] = true
	return name
}
