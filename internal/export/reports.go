package export

import (
	"fmt"
	"time"

	"github.com/Spok95/acadify-records/internal/models"
)

// GradeSheet renders one subject's grades for its term.
func GradeSheet(subject models.Subject, rows []models.GradeRow, generatedAt time.Time) (*Workbook, error) {
	spec := SheetSpec{
		Title: subject.Code,
		Caption: []string{
			fmt.Sprintf("%s - %s", subject.Code, subject.Name),
			fmt.Sprintf("A.Y. %s, %s", subject.AcademicYear, semesterLabel(subject.Semester)),
			"Generated " + generatedAt.Format("Jan 2, 2006 15:04"),
		},
		Header: []string{"Student No.", "Name", "Prelim", "Midterm", "Final", "Average", "Equivalent", "Remarks", "Status"},
	}
	for _, r := range rows {
		spec.Rows = append(spec.Rows, []any{
			r.StudentNo,
			r.StudentName,
			number(r.Prelim),
			number(r.Midterm),
			number(r.Final),
			number(r.FinalAverage),
			number(r.Equivalent),
			text(r.Remarks),
			string(r.State()),
		})
	}
	return NewWorkbook([]SheetSpec{spec})
}

// DeansList renders qualifying snapshot rows, one sheet per department
// after an overall sheet.
func DeansList(term models.Term, records []models.DeansListRecord) (*Workbook, error) {
	header := []string{"Rank", "Student No.", "Name", "Department", "GWA", "Units"}
	caption := []string{
		fmt.Sprintf("Dean's List - A.Y. %s, %s", term.AcademicYear, semesterLabel(term.Semester)),
	}
	var computed time.Time
	overall := SheetSpec{Title: "All", Caption: caption, Header: header}
	byDept := map[string]*SheetSpec{}
	var order []string
	for _, rec := range records {
		if rec.ComputedAt.After(computed) {
			computed = rec.ComputedAt
		}
		row := []any{rank(rec.Rank), rec.StudentNo, rec.StudentName, rec.Department, rec.GWA, rec.TotalUnits}
		overall.Rows = append(overall.Rows, row)
		dept := cleanName(rec.Department)
		s, ok := byDept[dept]
		if !ok {
			s = &SheetSpec{Title: dept, Caption: caption, Header: header}
			byDept[dept] = s
			order = append(order, dept)
		}
		s.Rows = append(s.Rows, row)
	}
	if !computed.IsZero() {
		overall.Caption = append(append([]string{}, caption...), "Computed "+computed.Format("Jan 2, 2006 15:04"))
	}
	sheets := []SheetSpec{overall}
	for _, d := range order {
		sheets = append(sheets, *byDept[d])
	}
	return NewWorkbook(sheets)
}

func number(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

func text(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func rank(r *int) any {
	if r == nil {
		return ""
	}
	return *r
}
