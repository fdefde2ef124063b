package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists application records.
type Repository interface {
	Add(ctx context.Context, record Record) error
	Get(ctx context.Context, docID string) (Record, error)
	List(ctx context.Context, filter Filter) ([]Record, error)
	Delete(ctx context.Context, docID string) error
	MarkApproved(ctx context.Context, docID string, at time.Time) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed application repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectColumns = `SELECT doc_id, username, application_id, approved, payload, created_at, approved_at
	FROM drivinglicense_waiting_approval`

// Add inserts a new record.
func (r *PostgresRepository) Add(ctx context.Context, record Record) error {
	docID, err := uuid.Parse(record.DocID)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(record.Payload)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO drivinglicense_waiting_approval
		(doc_id, username, application_id, approved, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		docID, record.Username, record.ApplicationID, record.Approved, payload, record.CreatedAt.UTC())
	return err
}

// Get fetches one record by document id.
func (r *PostgresRepository) Get(ctx context.Context, docID string) (Record, error) {
	id, err := uuid.Parse(docID)
	if err != nil {
		return Record{}, ErrNotFound
	}
	rec, err := scanRecord(r.db.QueryRow(ctx, selectColumns+` WHERE doc_id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	return hydrate(rec)
}

// List returns the records matching filter, oldest first.
func (r *PostgresRepository) List(ctx context.Context, filter Filter) ([]Record, error) {
	query := selectColumns + ` WHERE ($1::boolean IS NULL OR approved = $1) ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, filter.Approved)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		rec, err = hydrate(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete removes a record.
func (r *PostgresRepository) Delete(ctx context.Context, docID string) error {
	id, err := uuid.Parse(docID)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `DELETE FROM drivinglicense_waiting_approval WHERE doc_id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkApproved finalizes a record.
func (r *PostgresRepository) MarkApproved(ctx context.Context, docID string, at time.Time) error {
	id, err := uuid.Parse(docID)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE drivinglicense_waiting_approval SET approved = TRUE, approved_at = $1 WHERE doc_id = $2`, at.UTC(), id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var (
		id         uuid.UUID
		payload    []byte
		createdAt  time.Time
		approvedAt *time.Time
		rec        Record
	)
	if err := row.Scan(&id, &rec.Username, &rec.ApplicationID, &rec.Approved, &payload, &createdAt, &approvedAt); err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal(payload, &rec.Payload); err != nil {
		return Record{}, fmt.Errorf("decode payload: %w", err)
	}
	rec.DocID = id.String()
	rec.CreatedAt = createdAt.UTC()
	if approvedAt != nil {
		t := approvedAt.UTC()
		rec.ApprovedAt = &t
	}
	return rec, nil
}
