package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	apierrors "github.com/yukikurage/foresy-api/internal/errors"
	"github.com/yukikurage/foresy-api/internal/models"
	"github.com/yukikurage/foresy-api/internal/repository"
)

const (
	ExportFormatCSV = "csv"

	utf8BOM = "\xEF\xBB\xBF"
)

var (
	ErrUnsupportedExportFormat = apierrors.NewDomainError(apierrors.KindDomainValidation, "unsupported export format")
	ErrInvalidIncludeEntries   = apierrors.NewDomainError(apierrors.KindContractViolation, "include_entries must be a boolean")
)

var csvHeader = []string{"date", "mission_name", "quantity", "unit_price_eur", "line_total_eur", "description"}

// ExportService renders CRAs into downloadable documents
type ExportService struct {
	cras      *CraService
	entryRepo repository.CraEntryRepository
	log       logrus.FieldLogger
}

// NewExportService creates a new ExportService
func NewExportService(craService *CraService, entryRepo repository.CraEntryRepository, log logrus.FieldLogger) *ExportService {
	return &ExportService{
		cras:      craService,
		entryRepo: entryRepo,
		log:       log,
	}
}

// ExportInput holds the raw export options; empty values take their defaults
type ExportInput struct {
	ActorID        uint64
	CraID          uint64
	Format         string
	IncludeEntries string
}

// ExportResult is a rendered document
type ExportResult struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportCra renders a CRA owned by the actor
func (s *ExportService) ExportCra(ctx context.Context, input ExportInput) (*ExportResult, error) {
	format := strings.ToLower(strings.TrimSpace(input.Format))
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV {
		return nil, apierrors.Wrap(ErrUnsupportedExportFormat, "%q", input.Format)
	}

	includeEntries := true
	if raw := strings.TrimSpace(input.IncludeEntries); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, ErrInvalidIncludeEntries
		}
		includeEntries = parsed
	}

	cra, err := s.cras.GetCra(ctx, input.ActorID, input.CraID)
	if err != nil {
		return nil, err
	}

	var entries []models.CraEntry
	if includeEntries {
		entries, _, err = s.entryRepo.ListByCra(ctx, cra.ID, 0, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to load CRA entries: %w", err)
		}
	}

	body, err := renderCraCSV(cra, entries)
	if err != nil {
		return nil, fmt.Errorf("failed to render CRA export: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"cra_id":          cra.ID,
		"format":          format,
		"include_entries": includeEntries,
		"rows":            len(entries),
	}).Info("CRA exported")

	return &ExportResult{
		Filename:    fmt.Sprintf("cra_%04d_%02d.csv", cra.Year, cra.Month),
		ContentType: "text/csv; charset=utf-8",
		Body:        body,
	}, nil
}

// renderCraCSV writes a BOM, the header, one row per entry and a TOTAL row.
func renderCraCSV(cra *models.Cra, entries []models.CraEntry) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(utf8BOM)

	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}

	for i := range entries {
		entry := &entries[i]
		missionName := ""
		if entry.MissionLink != nil {
			missionName = entry.MissionLink.Mission.Name
		}
		row := []string{
			entry.DateKey(),
			missionName,
			entry.Quantity.StringFixed(2),
			formatCents(entry.UnitPrice),
			formatCents(entry.LineTotal()),
			entry.Description,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	if err := w.Write([]string{"TOTAL", "", cra.TotalDays.StringFixed(2), "", formatCents(cra.TotalAmount), ""}); err != nil {
		return nil, err
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// formatCents renders an amount in cents in major units.
func formatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}
