package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Spok95/acadify-records/internal/models"
)

func f64(v float64) *float64 { return &v }
func sp(s string) *string    { return &s }
func ip(i int) *int          { return &i }

func TestGradeSheet(t *testing.T) {
	subject := models.Subject{ID: 7, Code: "MATH101", Name: "College Algebra", AcademicYear: "2025-2026", Semester: 1}
	rows := []models.GradeRow{
		{
			Grade:       models.Grade{Prelim: f64(85), Midterm: f64(88), Final: f64(90), FinalAverage: f64(87.67), Equivalent: f64(2), Remarks: sp("Good"), IsComplete: true},
			StudentNo:   "2025-0100",
			StudentName: "Abad, Ana",
		},
		{Grade: models.Grade{Prelim: f64(70)}, StudentNo: "2025-0101", StudentName: "Bautista, Ben"},
	}
	wb, err := GradeSheet(subject, rows, time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("GradeSheet: %v", err)
	}
	defer func() { _ = wb.Close() }()

	got, err := wb.File.GetRows("MATH101")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	// three caption lines, a blank line, the header, two students
	if len(got) != 7 {
		t.Fatalf("rows = %d, want 7: %v", len(got), got)
	}
	if got[4][0] != "Student No." || got[4][8] != "Status" {
		t.Fatalf("header = %v", got[4])
	}
	if got[5][1] != "Abad, Ana" || got[5][5] != "87.67" || got[5][7] != "Good" || got[5][8] != "complete" {
		t.Fatalf("first row = %v", got[5])
	}
	if got[6][2] != "70" || got[6][8] != "draft" {
		t.Fatalf("second row = %v", got[6])
	}
}

func TestDeansListSheetsPerDepartment(t *testing.T) {
	term := models.Term{AcademicYear: "2025-2026", Semester: 2}
	at := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	records := []models.DeansListRecord{
		{StudentNo: "1", StudentName: "Abad, Ana", Department: "CS", GWA: 1.25, TotalUnits: 21, Rank: ip(1), ComputedAt: at},
		{StudentNo: "2", StudentName: "Cruz, Carla", Department: "IT", GWA: 1.5, TotalUnits: 18, Rank: ip(2), ComputedAt: at},
		{StudentNo: "3", StudentName: "Diaz, Dan", Department: "CS", GWA: 1.5, TotalUnits: 18, Rank: ip(2), ComputedAt: at},
	}
	wb, err := DeansList(term, records)
	if err != nil {
		t.Fatalf("DeansList: %v", err)
	}
	data, err := wb.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = f.Close() }()
	if names := f.GetSheetList(); len(names) != 3 || names[0] != "All" || names[1] != "CS" || names[2] != "IT" {
		t.Fatalf("sheets = %v", names)
	}
	cs, _ := f.GetRows("CS")
	// caption, blank, header, two rows
	if len(cs) != 5 || cs[4][2] != "Diaz, Dan" || cs[4][0] != "2" {
		t.Fatalf("CS sheet = %v", cs)
	}
}

func TestDeansListSheetNamesDoNotCollide(t *testing.T) {
	term := models.Term{AcademicYear: "2025-2026", Semester: 1}
	long := "Department of Computer Studies and Engineering"
	records := []models.DeansListRecord{
		{StudentNo: "1", StudentName: "Abad, Ana", Department: "All", GWA: 1.25, TotalUnits: 21, Rank: ip(1)},
		{StudentNo: "2", StudentName: "Bautista, Ben", Department: long + " - Main", GWA: 1.3, TotalUnits: 21, Rank: ip(2)},
		{StudentNo: "3", StudentName: "Cruz, Carla", Department: long + " - Annex", GWA: 1.4, TotalUnits: 21, Rank: ip(3)},
	}
	wb, err := DeansList(term, records)
	if err != nil {
		t.Fatalf("DeansList: %v", err)
	}
	data, err := wb.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = f.Close() }()

	names := f.GetSheetList()
	if len(names) != 4 || names[0] != "All" || names[1] != "All (2)" {
		t.Fatalf("sheets = %v", names)
	}
	if len([]rune(names[3])) > 31 || names[2] == names[3] {
		t.Fatalf("truncated names collide: %v", names)
	}
	overall, _ := f.GetRows("All")
	if len(overall) != 6 {
		t.Fatalf("overall sheet overwritten: %v", overall)
	}
	dept, _ := f.GetRows("All (2)")
	if len(dept) != 4 || dept[3][2] != "Abad, Ana" {
		t.Fatalf("department sheet = %v", dept)
	}
}

func TestFilenames(t *testing.T) {
	s := models.Subject{Code: "CS 101/A", AcademicYear: "2025-2026", Semester: 1}
	if got := GradeSheetFilename(s); got != "Grades - CS 101_A - 2025-2026 - 1st Semester.xlsx" {
		t.Fatalf("GradeSheetFilename = %q", got)
	}
	term := models.Term{AcademicYear: "2025-2026", Semester: 2}
	if got := DeansListFilename(term, ""); got != "Deans List - 2025-2026 - 2nd Semester.xlsx" {
		t.Fatalf("DeansListFilename = %q", got)
	}
}

func TestSheetName(t *testing.T) {
	if got := sheetName("a/b:c"); got != "a_b_c" {
		t.Fatalf("sheetName = %q", got)
	}
	if got := sheetName("Department of Computer Studies and Engineering"); len([]rune(got)) != 31 {
		t.Fatalf("sheetName not truncated: %q", got)
	}
}
