package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/grahaedukasi/graha-cbt/internal/model"
	"github.com/grahaedukasi/graha-cbt/internal/repository"
)

var studentSheetHeaders = []string{"Nama", "Kelas", "Sekolah", "Kode Akses", "Status", "Nilai"}

var statusLabels = map[model.StudentStatus]string{
	model.StudentStatusNotStarted: "Belum Mulai",
	model.StudentStatusInProgress: "Mengerjakan",
	model.StudentStatusCompleted:  "Selesai",
}

// ReportService exports and imports the student roster as spreadsheets.
type ReportService struct {
	store    repository.Store
	students *StudentService
	log      zerolog.Logger
}

func NewReportService(store repository.Store, students *StudentService, log zerolog.Logger) *ReportService {
	return &ReportService{
		store:    store,
		students: students,
		log:      log.With().Str("component", "report_service").Logger(),
	}
}

// ExportStudents writes every student with their status and score to XLSX.
func (s *ReportService) ExportStudents(ctx context.Context) ([]byte, error) {
	students, err := s.store.GetStudents(ctx)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	for i, h := range studentSheetHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for i, st := range students {
		row := i + 2
		values := []any{
			st.Name,
			st.ClassName,
			st.School,
			st.Code,
			statusLabels[st.Status],
			st.Score,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	_ = f.SetColWidth(sheet, "A", "A", 30)
	_ = f.SetColWidth(sheet, "B", "F", 16)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}

// ParseStudentSheet reads roster rows from the first sheet. The header row
// must contain Nama and Kelas; Sekolah is optional. Matching is case-insensitive.
func ParseStudentSheet(r io.Reader) ([]model.CreateStudentRequest, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: open excel: %w", ErrInvalidImport, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: excel sheet is empty", ErrInvalidImport)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: read rows: %w", ErrInvalidImport, err)
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("%w: no header row", ErrInvalidImport)
	}

	header := map[string]int{}
	for i, h := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(h))] = i
	}
	nameCol, okName := header["nama"]
	classCol, okClass := header["kelas"]
	if !okName || !okClass {
		return nil, fmt.Errorf("%w: missing required column: nama/kelas", ErrInvalidImport)
	}
	schoolCol, hasSchool := header["sekolah"]

	get := func(row []string, idx int) string {
		if idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	out := make([]model.CreateStudentRequest, 0, len(rows)-1)
	for _, row := range rows[1:] {
		req := model.CreateStudentRequest{
			Name:      get(row, nameCol),
			ClassName: get(row, classCol),
		}
		if hasSchool {
			req.School = get(row, schoolCol)
		}
		if req.Name == "" && req.ClassName == "" && req.School == "" {
			continue
		}
		out = append(out, req)
	}
	return out, nil
}

// ImportStudents parses an XLSX roster and registers its rows.
func (s *ReportService) ImportStudents(ctx context.Context, r io.Reader) (ImportResult, error) {
	rows, err := ParseStudentSheet(r)
	if err != nil {
		return ImportResult{}, err
	}
	return s.students.Import(ctx, rows)
}
