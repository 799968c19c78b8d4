// Package vendors implements the vendor CRUD, search and CSV surface on
// top of the vendor repository port.
package vendors

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"vendorgrid/internal/domain"
	"vendorgrid/internal/ports"
)

const (
	maxPageSize     = 100
	defaultPageSize = 20

	// DataSourceManual marks profiles entered through the API rather
	// than ingested from a registry.
	DataSourceManual = "manual"
)

// csvHeader is the import/export column set.
var csvHeader = []string{"name", "tax_id", "address", "contact_email"}

// Notifier is told about successful vendor mutations so external
// systems can react. Implementations must not block the mutation.
type Notifier interface {
	VendorCreated(ctx context.Context, p domain.VendorProfile)
	VendorUpdated(ctx context.Context, p domain.VendorProfile)
	VendorDeleted(ctx context.Context, vendorID string)
	ImportCompleted(ctx context.Context, summary ports.ImportSummary)
}

type Service struct {
	repo   ports.VendorRepository
	notify Notifier
}

func New(repo ports.VendorRepository) *Service { return &Service{repo: repo} }

// SetNotifier attaches the webhook notifier. Nil leaves notifications
// off.
func (s *Service) SetNotifier(n Notifier) { s.notify = n }

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string { return e.Field + ": " + e.Message }

func validate(in ports.VendorInput) error {
	if strings.TrimSpace(in.CompanyName) == "" {
		return ValidationError{Field: "companyName", Message: "is required"}
	}
	if in.Email != "" && !strings.Contains(in.Email, "@") {
		return ValidationError{Field: "email", Message: "is not a valid email address"}
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.VendorProfile, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]domain.VendorProfile, error) {
	return s.repo.List(ctx)
}

func (s *Service) Create(ctx context.Context, in ports.VendorInput, actor string) (domain.VendorProfile, error) {
	p, err := s.create(ctx, in, actor)
	if err != nil {
		return domain.VendorProfile{}, err
	}
	if s.notify != nil {
		s.notify.VendorCreated(ctx, p)
	}
	return p, nil
}

// create is the shared validate-insert-audit path. CSV import uses it
// directly so bulk rows do not fire per-vendor webhook events.
func (s *Service) create(ctx context.Context, in ports.VendorInput, actor string) (domain.VendorProfile, error) {
	if err := validate(in); err != nil {
		return domain.VendorProfile{}, err
	}
	p, err := s.repo.Create(ctx, profileFromInput(in))
	if err != nil {
		return domain.VendorProfile{}, err
	}
	if err := s.repo.RecordAudit(ctx, p.ID, "created", actor); err != nil {
		return domain.VendorProfile{}, err
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, id string, in ports.VendorInput, actor string) (domain.VendorProfile, error) {
	if err := validate(in); err != nil {
		return domain.VendorProfile{}, err
	}
	p := profileFromInput(in)
	p.ID = id
	updated, err := s.repo.Update(ctx, p)
	if err != nil {
		return domain.VendorProfile{}, err
	}
	if err := s.repo.RecordAudit(ctx, id, "updated", actor); err != nil {
		return domain.VendorProfile{}, err
	}
	if s.notify != nil {
		s.notify.VendorUpdated(ctx, updated)
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	deleted, err := s.repo.Delete(ctx, id)
	if err == nil && deleted && s.notify != nil {
		s.notify.VendorDeleted(ctx, id)
	}
	return deleted, err
}

func (s *Service) Provenance(ctx context.Context, vendorID string) ([]domain.ProvenanceEntry, error) {
	return s.repo.Provenance(ctx, vendorID)
}

func (s *Service) Search(ctx context.Context, q ports.VendorSearch, page, pageSize int) (ports.PagedVendors, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	items, total, err := s.repo.Search(ctx, q, page, pageSize)
	if err != nil {
		return ports.PagedVendors{}, err
	}
	out := ports.PagedVendors{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}
	out.TotalPages = (total + pageSize - 1) / pageSize
	return out, nil
}

// ExportCSV renders all active vendors in the import column format.
func (s *Service) ExportCSV(ctx context.Context) ([]byte, error) {
	profiles, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, p := range profiles {
		if err := w.Write([]string{p.CompanyName, p.BusinessIdentifier, p.Address, p.Email}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ImportCSV creates one vendor per valid row. Bad rows are reported with
// their 1-based data row number and do not abort the rest of the file.
func (s *Service) ImportCSV(ctx context.Context, csvData []byte, actor string) (ports.ImportSummary, error) {
	r := csv.NewReader(bytes.NewReader(csvData))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return ports.ImportSummary{}, fmt.Errorf("read csv header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := col["name"]; !ok {
		return ports.ImportSummary{}, fmt.Errorf("csv header missing required column %q", "name")
	}
	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var summary ports.ImportSummary
	for rowNum := 1; ; rowNum++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			summary.TotalRows++
			summary.ErrorCount++
			summary.Errors = append(summary.Errors, ports.RowError{Row: rowNum, Message: err.Error()})
			continue
		}
		summary.TotalRows++

		in := ports.VendorInput{
			CompanyName:        field(row, "name"),
			BusinessIdentifier: field(row, "tax_id"),
			Address:            field(row, "address"),
			Email:              field(row, "contact_email"),
		}
		if _, err := s.create(ctx, in, actor); err != nil {
			summary.ErrorCount++
			re := ports.RowError{Row: rowNum, Message: err.Error()}
			var ve ValidationError
			if errors.As(err, &ve) {
				re.Field = ve.Field
				re.Message = ve.Message
			}
			summary.Errors = append(summary.Errors, re)
			continue
		}
		summary.SuccessCount++
	}
	if s.notify != nil {
		s.notify.ImportCompleted(ctx, summary)
	}
	return summary, nil
}

func profileFromInput(in ports.VendorInput) domain.VendorProfile {
	return domain.VendorProfile{
		CompanyName:        strings.TrimSpace(in.CompanyName),
		BusinessIdentifier: strings.TrimSpace(in.BusinessIdentifier),
		Address:            in.Address,
		City:               in.City,
		Province:           in.Province,
		PostalCode:         in.PostalCode,
		Phone:              in.Phone,
		Email:              strings.TrimSpace(in.Email),
		Website:            in.Website,
		VerificationStatus: domain.VerificationUnverified,
		DataSource:         DataSourceManual,
		IsActive:           true,
	}
}
