package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"vendorgrid/internal/domain"
	"vendorgrid/internal/ports"
)

// importMethod labels provenance rows written by the ingestion pipeline.
const importMethod = "Government Registry Import"

const vendorColumns = `id, company_name, business_identifier, address, city, province,
	postal_code, phone, email, website, owner_user_id, verification_status,
	data_source, is_active, created_at, updated_at, claimed_at`

func scanVendor(row pgx.Row) (domain.VendorProfile, error) {
	var p domain.VendorProfile
	err := row.Scan(
		&p.ID, &p.CompanyName, &p.BusinessIdentifier, &p.Address, &p.City,
		&p.Province, &p.PostalCode, &p.Phone, &p.Email, &p.Website,
		&p.OwnerUserID, &p.VerificationStatus, &p.DataSource, &p.IsActive,
		&p.CreatedAt, &p.UpdatedAt, &p.ClaimedAt,
	)
	return p, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// VendorRepository

func (db *DB) GetByID(ctx context.Context, id string) (domain.VendorProfile, error) {
	if uuid.Validate(id) != nil {
		return domain.VendorProfile{}, ports.ErrNotFound
	}
	p, err := scanVendor(db.Pool.QueryRow(ctx, `
		SELECT `+vendorColumns+` FROM vendors WHERE id = $1 AND is_active
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.VendorProfile{}, ports.ErrNotFound
	}
	return p, err
}

func (db *DB) GetByIdentifier(ctx context.Context, identifier string) (domain.VendorProfile, error) {
	p, err := scanVendor(db.Pool.QueryRow(ctx, `
		SELECT `+vendorColumns+` FROM vendors
		WHERE business_identifier = $1 AND business_identifier <> '' AND is_active
	`, identifier))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.VendorProfile{}, ports.ErrNotFound
	}
	return p, err
}

func (db *DB) List(ctx context.Context) ([]domain.VendorProfile, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+vendorColumns+` FROM vendors WHERE is_active ORDER BY company_name, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.VendorProfile
	for rows.Next() {
		p, err := scanVendor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (db *DB) Create(ctx context.Context, p domain.VendorProfile) (domain.VendorProfile, error) {
	created, err := scanVendor(db.Pool.QueryRow(ctx, `
		INSERT INTO vendors (company_name, business_identifier, address, city, province,
			postal_code, phone, email, website, owner_user_id, verification_status,
			data_source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+vendorColumns+`
	`, p.CompanyName, p.BusinessIdentifier, p.Address, p.City, p.Province,
		p.PostalCode, p.Phone, p.Email, p.Website, p.OwnerUserID,
		p.VerificationStatus, p.DataSource))
	if isUniqueViolation(err) {
		return domain.VendorProfile{}, ports.ErrDuplicateIdentifier
	}
	return created, err
}

func (db *DB) Update(ctx context.Context, p domain.VendorProfile) (domain.VendorProfile, error) {
	if uuid.Validate(p.ID) != nil {
		return domain.VendorProfile{}, ports.ErrNotFound
	}
	updated, err := scanVendor(db.Pool.QueryRow(ctx, `
		UPDATE vendors SET
			company_name = $2, business_identifier = $3, address = $4, city = $5,
			province = $6, postal_code = $7, phone = $8, email = $9, website = $10,
			updated_at = now()
		WHERE id = $1 AND is_active
		RETURNING `+vendorColumns+`
	`, p.ID, p.CompanyName, p.BusinessIdentifier, p.Address, p.City,
		p.Province, p.PostalCode, p.Phone, p.Email, p.Website))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.VendorProfile{}, ports.ErrNotFound
	}
	if isUniqueViolation(err) {
		return domain.VendorProfile{}, ports.ErrDuplicateIdentifier
	}
	return updated, err
}

// Delete deactivates the profile rather than removing the row, so the
// audit trail and provenance stay intact.
func (db *DB) Delete(ctx context.Context, id string) (bool, error) {
	if uuid.Validate(id) != nil {
		return false, nil
	}
	tag, err := db.Pool.Exec(ctx, `
		UPDATE vendors SET is_active = false, updated_at = now()
		WHERE id = $1 AND is_active
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (db *DB) Search(ctx context.Context, q ports.VendorSearch, page, pageSize int) ([]domain.VendorProfile, int, error) {
	var clauses []string
	var args []any
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, "%"+value+"%")
		clauses = append(clauses, fmt.Sprintf("%s ILIKE $%d", column, len(args)))
	}
	add("company_name", q.Name)
	add("business_identifier", q.Identifier)
	add("address", q.Address)
	add("email", q.Email)

	where := "is_active"
	if len(clauses) > 0 {
		where += " AND (" + strings.Join(clauses, " OR ") + ")"
	}
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := db.Pool.Query(ctx, fmt.Sprintf(`
		SELECT %s, count(*) OVER () FROM vendors
		WHERE %s
		ORDER BY company_name, id
		LIMIT $%d OFFSET $%d
	`, vendorColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []domain.VendorProfile
	total := 0
	for rows.Next() {
		var p domain.VendorProfile
		if err := rows.Scan(
			&p.ID, &p.CompanyName, &p.BusinessIdentifier, &p.Address, &p.City,
			&p.Province, &p.PostalCode, &p.Phone, &p.Email, &p.Website,
			&p.OwnerUserID, &p.VerificationStatus, &p.DataSource, &p.IsActive,
			&p.CreatedAt, &p.UpdatedAt, &p.ClaimedAt, &total,
		); err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (db *DB) ChangedSince(ctx context.Context, since time.Time, limit, offset int) ([]domain.VendorProfile, int, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+vendorColumns+`, count(*) OVER () FROM vendors
		WHERE is_active AND updated_at > $1
		ORDER BY updated_at, id
		LIMIT $2 OFFSET $3
	`, since, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []domain.VendorProfile
	total := 0
	for rows.Next() {
		var p domain.VendorProfile
		if err := rows.Scan(
			&p.ID, &p.CompanyName, &p.BusinessIdentifier, &p.Address, &p.City,
			&p.Province, &p.PostalCode, &p.Phone, &p.Email, &p.Website,
			&p.OwnerUserID, &p.VerificationStatus, &p.DataSource, &p.IsActive,
			&p.CreatedAt, &p.UpdatedAt, &p.ClaimedAt, &total,
		); err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (db *DB) Provenance(ctx context.Context, vendorID string) ([]domain.ProvenanceEntry, error) {
	if uuid.Validate(vendorID) != nil {
		return nil, ports.ErrNotFound
	}
	rows, err := db.Pool.Query(ctx, `
		SELECT id, vendor_id, field_name, source, method, created_at
		FROM provenance_entries
		WHERE vendor_id = $1
		ORDER BY created_at, field_name
	`, vendorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ProvenanceEntry
	for rows.Next() {
		var e domain.ProvenanceEntry
		if err := rows.Scan(&e.ID, &e.VendorID, &e.FieldName, &e.Source, &e.Method, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (db *DB) RecordAudit(ctx context.Context, vendorID, action, actor string) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO audit_log (vendor_id, action, actor)
		VALUES ($1, $2, $3)
	`, vendorID, action, actor)
	return err
}

// ImportStore

// ImportRecord inserts an unclaimed stub profile for rec unless a profile
// with the same business identifier already exists. The stub, its
// provenance rows and the audit entry are written in one transaction.
func (db *DB) ImportRecord(ctx context.Context, rec domain.BusinessRecord, sourceName string) (bool, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	var vendorID string
	err = tx.QueryRow(ctx, `
		INSERT INTO vendors (company_name, business_identifier, address, city, province,
			postal_code, phone, email, website, verification_status, data_source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (business_identifier) WHERE business_identifier <> '' DO NOTHING
		RETURNING id
	`, rec.CompanyName, rec.BusinessIdentifier, rec.Address, rec.City,
		rec.Province, rec.PostalCode, rec.Phone, rec.Email, rec.Website,
		domain.VerificationUnverified, sourceName).Scan(&vendorID)
	if errors.Is(err, pgx.ErrNoRows) {
		// Identifier already known. Claim edits on the existing profile
		// must survive re-runs, so leave it alone.
		return false, nil
	}
	if err != nil {
		return false, err
	}

	for _, f := range rec.Fields() {
		if f.Value == "" {
			continue
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO provenance_entries (vendor_id, field_name, source, method)
			VALUES ($1, $2, $3, $4)
		`, vendorID, f.Name, sourceName, importMethod); err != nil {
			return false, err
		}
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO audit_log (vendor_id, action, actor)
		VALUES ($1, 'import_created', $2)
	`, vendorID, "system:"+sourceName); err != nil {
		return false, err
	}

	return true, tx.Commit(ctx)
}
