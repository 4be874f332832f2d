package export

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Spok95/acadify-records/internal/models"
)

// ApplyDefaultExcelFormatting applies:
// - bold header on headerRow,
// - auto-filter on headerRow,
// - approximate auto-width for all data columns present on the sheet.
func ApplyDefaultExcelFormatting(f *excelize.File, sheet string, headerRow int) error {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return err
	}
	if len(rows) < headerRow {
		return nil
	}
	cols := 0
	for _, r := range rows {
		if len(r) > cols {
			cols = len(r)
		}
	}
	if cols == 0 {
		return nil
	}

	first := fmt.Sprintf("A%d", headerRow)
	last := fmt.Sprintf("%s%d", columnName(cols), headerRow)
	if style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	}); err == nil {
		_ = f.SetCellStyle(sheet, first, last, style)
	}
	_ = f.AutoFilter(sheet, first+":"+last, nil)

	widths := make([]float64, cols)
	for c := range widths {
		widths[c] = 10
	}
	for rIdx, row := range rows {
		if rIdx < headerRow-1 {
			// title lines span several columns
			continue
		}
		for cIdx := 0; cIdx < cols && cIdx < len(row); cIdx++ {
			w := float64(visualLen(row[cIdx])) * 1.1
			if rIdx == headerRow-1 {
				w += 1.5
			}
			if w > 50 {
				w = 50
			}
			if w > widths[cIdx] {
				widths[cIdx] = w
			}
		}
	}
	for i, w := range widths {
		col := columnName(i + 1)
		_ = f.SetColWidth(sheet, col, col, w)
	}
	return nil
}

func GradeSheetFilename(subject models.Subject) string {
	return sanitizeFileName(fmt.Sprintf("Grades - %s - %s - %s.xlsx",
		cleanName(subject.Code), cleanName(subject.AcademicYear), semesterLabel(subject.Semester)))
}

func DeansListFilename(term models.Term, department string) string {
	name := fmt.Sprintf("Deans List - %s - %s", cleanName(term.AcademicYear), semesterLabel(term.Semester))
	if department != "" {
		name += " - " + department
	}
	return sanitizeFileName(name + ".xlsx")
}

func semesterLabel(sem int) string {
	switch sem {
	case 1:
		return "1st Semester"
	case 2:
		return "2nd Semester"
	default:
		return fmt.Sprintf("Semester %d", sem)
	}
}

// 1 -> A; 27 -> AA
func columnName(n int) string {
	s := ""
	for n > 0 {
		n--
		s = string(rune('A'+(n%26))) + s
		n /= 26
	}
	return s
}

// visualLen approximates text width by counting runes, treating tabs as 4 chars.
func visualLen(s string) int {
	n := 0
	for _, r := range s {
		if r == '\t' {
			n += 4
		} else {
			n++
		}
	}
	return n
}

var (
	invalidFileRe  = regexp.MustCompile(`[\\/:*?"<>|]+`)
	invalidSheetRe = regexp.MustCompile(`[\\/:*?\[\]]+`)
)

func sanitizeFileName(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return invalidFileRe.ReplaceAllString(s, "_")
}

func cleanName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "-"
	}
	return s
}
