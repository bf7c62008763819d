package estimate

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sevencars/estimation/internal/pricing"
)

const timeLayout = "2006-01-02 15:04:05"

// ErrNotFound is returned by Get when no estimation has the requested id.
var ErrNotFound = errors.New("estimation not found")

// Store persists estimation records in an append-only sqlite table. Records
// are never updated or deleted; the full log is read back for display.
type Store struct {
	db *sql.DB
}

// NewStore returns a Store backed by the given database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append adds a completed estimation to the history log and returns its id.
func (s *Store) Append(r Record) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO estimations (
			created_at,
			reference,
			garage,
			brand,
			model,
			year,
			mileage,
			vat_regime,
			resale_price,
			refurbishment_cost,
			total_costs,
			target_margin,
			vat_payable,
			max_purchase_price
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.CreatedAt.Format(timeLayout),
		r.Reference,
		r.Garage,
		r.Brand,
		r.Model,
		r.Year,
		r.Mileage,
		r.Regime.FormValue(),
		r.ResalePrice,
		r.RefurbishmentCost,
		r.TotalCosts,
		r.TargetMargin,
		r.VATPayable,
		r.MaxPurchasePrice,
	)
	if err != nil {
		return 0, fmt.Errorf("insert estimation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read inserted estimation id: %w", err)
	}

	return id, nil
}

// List returns the full history, newest first. No filtering, no pagination:
// the log is small and is always displayed in full.
func (s *Store) List() ([]Record, error) {
	rows, err := s.db.Query(selectColumns + `
		FROM estimations
		ORDER BY datetime(created_at) DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query estimations: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate estimations: %w", err)
	}

	return records, nil
}

// Get returns a single estimation by id.
func (s *Store) Get(id int64) (Record, error) {
	row := s.db.QueryRow(selectColumns+`
		FROM estimations
		WHERE id = ?
	`, id)

	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}

	return record, nil
}

const selectColumns = `
	SELECT
		id,
		created_at,
		reference,
		garage,
		brand,
		model,
		year,
		mileage,
		vat_regime,
		resale_price,
		refurbishment_cost,
		total_costs,
		target_margin,
		vat_payable,
		max_purchase_price
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var r Record
	var createdAt string
	var regime string

	err := row.Scan(
		&r.ID,
		&createdAt,
		&r.Reference,
		&r.Garage,
		&r.Brand,
		&r.Model,
		&r.Year,
		&r.Mileage,
		&regime,
		&r.ResalePrice,
		&r.RefurbishmentCost,
		&r.TotalCosts,
		&r.TargetMargin,
		&r.VATPayable,
		&r.MaxPurchasePrice,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, err
	}
	if err != nil {
		return Record{}, fmt.Errorf("scan estimation: %w", err)
	}

	r.CreatedAt, err = time.Parse(timeLayout, createdAt)
	if err != nil {
		return Record{}, fmt.Errorf("parse estimation created_at: %w", err)
	}

	parsed, ok := pricing.ParseRegime(regime)
	if !ok {
		return Record{}, fmt.Errorf("unknown vat regime %q in estimation %d", regime, r.ID)
	}
	r.Regime = parsed

	return r, nil
}
