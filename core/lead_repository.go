package core

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrLeadNotPending is returned by AcquirePending when the lead has already
// been picked up or finished; the worker acks and moves on.
var ErrLeadNotPending = errors.New("lead is not pending")

// Lead is one quote request captured by the marketing site. Status is one of
// pending | delivering | delivered | failed.
type Lead struct {
	ID          int64
	Reference   string
	FullName    string
	Email       string
	Phone       string
	MoveDate    string
	FromAddress string
	ToAddress   string
	HomeSize    string
	Notes       string
	Status      string
	RetryCount  int
	CreatedAt   time.Time
	DeliveredAt *time.Time
}

// LeadStatusCounts is a per-status tally for the ops status endpoint.
type LeadStatusCounts struct {
	Pending   int64 `json:"pending"`
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
}

type LeadRepository interface {
	Create(ctx context.Context, lead Lead) (int64, time.Time, error)
	FindByID(ctx context.Context, id int64) (*Lead, error)
	AcquirePending(ctx context.Context, id int64) (*Lead, error)
	MarkStatus(ctx context.Context, id int64, status string) error
	MarkDelivered(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, reason string) error
	IncrementRetry(ctx context.Context, id int64) (int, error)
	CountByStatus(ctx context.Context) (LeadStatusCounts, error)
}

type PgLeadRepository struct {
	db *pgxpool.Pool
}

func NewPgLeadRepository(db *pgxpool.Pool) *PgLeadRepository {
	return &PgLeadRepository{db: db}
}

func (r *PgLeadRepository) Create(ctx context.Context, lead Lead) (int64, time.Time, error) {
	const q = `
INSERT INTO leads (reference, full_name, email, phone, move_date, from_address, to_address, home_size, notes, status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,'pending') RETURNING id, created_at`
	var id int64
	var created time.Time
	err := r.db.QueryRow(ctx, q,
		lead.Reference, lead.FullName, lead.Email, lead.Phone, lead.MoveDate,
		lead.FromAddress, lead.ToAddress, lead.HomeSize, lead.Notes,
	).Scan(&id, &created)
	if err != nil {
		return 0, time.Time{}, err
	}
	return id, created, nil
}

func (r *PgLeadRepository) FindByID(ctx context.Context, id int64) (*Lead, error) {
	const q = `
SELECT id, reference, full_name, email, phone, move_date, from_address, to_address, home_size, notes,
       status, retry_count, created_at, delivered_at
FROM leads WHERE id=$1`
	var l Lead
	err := r.db.QueryRow(ctx, q, id).Scan(
		&l.ID, &l.Reference, &l.FullName, &l.Email, &l.Phone, &l.MoveDate,
		&l.FromAddress, &l.ToAddress, &l.HomeSize, &l.Notes,
		&l.Status, &l.RetryCount, &l.CreatedAt, &l.DeliveredAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// AcquirePending locks a pending lead and transitions it to delivering
// atomically so two workers never deliver the same lead.
func (r *PgLeadRepository) AcquirePending(ctx context.Context, id int64) (*Lead, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const q = `
SELECT id, reference, full_name, email, phone, move_date, from_address, to_address, home_size, notes,
       status, retry_count, created_at, delivered_at
FROM leads WHERE id=$1 FOR UPDATE`
	var l Lead
	err = tx.QueryRow(ctx, q, id).Scan(
		&l.ID, &l.Reference, &l.FullName, &l.Email, &l.Phone, &l.MoveDate,
		&l.FromAddress, &l.ToAddress, &l.HomeSize, &l.Notes,
		&l.Status, &l.RetryCount, &l.CreatedAt, &l.DeliveredAt,
	)
	if err != nil {
		return nil, err
	}
	if l.Status != "pending" {
		return nil, ErrLeadNotPending
	}
	if _, err := tx.Exec(ctx, `UPDATE leads SET status='delivering', updated_at=NOW() WHERE id=$1`, id); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	l.Status = "delivering"
	return &l, nil
}

func (r *PgLeadRepository) MarkStatus(ctx context.Context, id int64, status string) error {
	if status == "" {
		return errors.New("status is empty")
	}
	const q = `UPDATE leads SET status=$1, updated_at=NOW() WHERE id=$2`
	ct, err := r.db.Exec(ctx, q, status, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errors.New("lead not found")
	}
	return nil
}

func (r *PgLeadRepository) MarkDelivered(ctx context.Context, id int64) error {
	const q = `UPDATE leads SET status='delivered', delivered_at=NOW(), updated_at=NOW() WHERE id=$1`
	_, err := r.db.Exec(ctx, q, id)
	return err
}

func (r *PgLeadRepository) MarkFailed(ctx context.Context, id int64, reason string) error {
	const q = `UPDATE leads SET status='failed', failure_reason=$1, updated_at=NOW() WHERE id=$2`
	_, err := r.db.Exec(ctx, q, reason, id)
	return err
}

func (r *PgLeadRepository) IncrementRetry(ctx context.Context, id int64) (int, error) {
	const q = `UPDATE leads SET retry_count = retry_count + 1, updated_at=NOW() WHERE id=$1 RETURNING retry_count`
	var n int
	if err := r.db.QueryRow(ctx, q, id).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *PgLeadRepository) CountByStatus(ctx context.Context) (LeadStatusCounts, error) {
	const q = `
SELECT
  COUNT(*) FILTER (WHERE status IN ('pending','delivering')),
  COUNT(*) FILTER (WHERE status = 'delivered'),
  COUNT(*) FILTER (WHERE status = 'failed')
FROM leads`
	var c LeadStatusCounts
	if err := r.db.QueryRow(ctx, q).Scan(&c.Pending, &c.Delivered, &c.Failed); err != nil {
		return LeadStatusCounts{}, err
	}
	return c, nil
}
