package repository

import (
	"context"
	"database/sql"

	"vendkiosk/backend/services/card-demo/internal/models"
)

const schema = `
	CREATE TABLE IF NOT EXISTS card_debits (
		id                 BIGSERIAL PRIMARY KEY,
		student_number     TEXT        NOT NULL,
		kind               TEXT        NOT NULL,
		amount_minor_units INTEGER     NOT NULL,
		card_counter       BIGINT      NOT NULL,
		comment            TEXT        NOT NULL DEFAULT '',
		created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

// DebitRepository persists card debits.
type DebitRepository struct {
	db *sql.DB
}

// NewDebitRepository returns repository.
func NewDebitRepository(db *sql.DB) *DebitRepository {
	return &DebitRepository{db: db}
}

// EnsureSchema creates the ledger table when missing.
func (r *DebitRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

// Create inserts a new debit.
func (r *DebitRepository) Create(ctx context.Context, d *models.Debit) error {
	const query = `
		INSERT INTO card_debits (student_number, kind, amount_minor_units, card_counter, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at
	`
	return r.db.QueryRowContext(ctx, query,
		d.StudentNumber,
		d.Kind,
		d.AmountMinorUnits,
		d.CardCounter,
		d.Comment,
	).Scan(&d.ID, &d.CreatedAt)
}

// ListByStudent returns latest debits for a card holder.
func (r *DebitRepository) ListByStudent(ctx context.Context, studentNumber string, limit int) ([]models.Debit, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
		SELECT id, student_number, kind, amount_minor_units, card_counter, comment, created_at
		FROM card_debits
		WHERE student_number = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, studentNumber, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var debits []models.Debit
	for rows.Next() {
		var d models.Debit
		if err := rows.Scan(
			&d.ID,
			&d.StudentNumber,
			&d.Kind,
			&d.AmountMinorUnits,
			&d.CardCounter,
			&d.Comment,
			&d.CreatedAt,
		); err != nil {
			return nil, err
		}
		debits = append(debits, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return debits, nil
}
