// Package export writes stored records to spreadsheets.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jackzampolin/form32/internal/record"
	"github.com/jackzampolin/form32/internal/store"
)

const (
	RecordsSheet    = "Records"
	ProvenanceSheet = "Provenance"
)

// Lister is the slice of the record store the exporter reads.
type Lister interface {
	List(ctx context.Context, opts store.ListOptions) ([]*store.StoredRecord, error)
}

// Service produces XLSX workbooks from the record store.
type Service struct {
	records Lister
	logger  *slog.Logger
}

// NewService creates an export service.
func NewService(records Lister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{records: records, logger: logger}
}

// RecordsXLSX returns a workbook (as bytes) with one row per stored record
// matching opts. The Records sheet holds every canonical field; the
// Provenance sheet holds the source of each field.
func (s *Service) RecordsXLSX(ctx context.Context, opts store.ListOptions) ([]byte, error) {
	start := time.Now()

	recs, err := s.records.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	// Rename the default sheet rather than leaving an empty Sheet1.
	if err := f.SetSheetName("Sheet1", RecordsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(ProvenanceSheet); err != nil {
		return nil, err
	}
	activeIndex, _ := f.GetSheetIndex(RecordsSheet)
	f.SetActiveSheet(activeIndex)

	fields := record.Fields()
	leading := []string{"Record ID", "Processed At", "Source File", "Warnings"}

	headers := make([]string, 0, len(leading)+len(fields))
	headers = append(headers, leading...)
	for _, fd := range fields {
		headers = append(headers, fd.Name)
	}
	if err := writeRow(f, RecordsSheet, 1, headers); err != nil {
		return nil, err
	}
	provHeaders := append([]string{"Record ID"}, headers[len(leading):]...)
	if err := writeRow(f, ProvenanceSheet, 1, provHeaders); err != nil {
		return nil, err
	}

	for i, r := range recs {
		row := i + 2
		values := make([]any, 0, len(headers))
		values = append(values, r.ID, r.ProcessedAt.UTC().Format(time.RFC3339), r.SourcePath, strings.Join(r.Warnings, "; "))
		prov := make([]any, 0, len(fields)+1)
		prov = append(prov, r.ID)
		for _, fd := range fields {
			values = append(values, cellValue(r.Record, fd))
			prov = append(prov, string(r.Provenance.Get(fd.Name)))
		}
		if err := writeRow(f, RecordsSheet, row, values); err != nil {
			return nil, err
		}
		if err := writeRow(f, ProvenanceSheet, row, prov); err != nil {
			return nil, err
		}
	}

	for _, sheet := range []string{RecordsSheet, ProvenanceSheet} {
		_ = f.SetPanes(sheet, &excelize.Panes{Freeze: true, Split: false, XSplit: 1, YSplit: 1, TopLeftCell: "B2", ActivePane: "bottomRight"})
	}
	_ = f.SetColWidth(RecordsSheet, "A", "A", 38) // id
	_ = f.SetColWidth(RecordsSheet, "B", "B", 22) // processed at
	_ = f.SetColWidth(RecordsSheet, "C", "C", 48) // path
	_ = f.SetColWidth(RecordsSheet, "D", "D", 48) // warnings
	_ = f.SetColWidth(ProvenanceSheet, "A", "A", 38)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("records exported",
		"rows", len(recs),
		"elapsed", time.Since(start),
	)
	return buf.Bytes(), nil
}

func writeRow[T any](f *excelize.File, sheet string, row int, values []T) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return f.SetSheetRow(sheet, cell, &out)
}

// cellValue renders a field for a spreadsheet cell. Flags are Yes/No,
// unset flags and text are blank.
func cellValue(rec *record.Record, fd record.Field) any {
	if rec == nil {
		return ""
	}
	switch fd.Kind {
	case record.KindFlag:
		v, ok := rec.Flag(fd.Name)
		if !ok {
			return ""
		}
		if v {
			return "Yes"
		}
		return "No"
	case record.KindText:
		return rec.Text(fd.Name)
	default:
		var parts []string
		for _, ev := range rec.InjuryEvaluations {
			parts = append(parts, evaluationText(ev))
		}
		return strings.Join(parts, "; ")
	}
}

func evaluationText(ev record.InjuryEvaluation) string {
	var codes []string
	for _, c := range ev.DiagnosisCodes {
		if c = strings.TrimSpace(c); c != "" {
			codes = append(codes, c)
		}
	}
	text := strings.TrimSpace(ev.ConditionText)
	if len(codes) > 0 {
		text += " (" + strings.Join(codes, ", ") + ")"
	}
	if ev.IsSubstantialFactor != nil {
		if *ev.IsSubstantialFactor {
			text += " [substantial factor]"
		} else {
			text += " [not a substantial factor]"
		}
	}
	return strings.TrimSpace(text)
}
