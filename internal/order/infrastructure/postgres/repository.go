package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	checkout "github.com/foltz-ar/checkout-service/internal/checkout/domain"
	"github.com/foltz-ar/checkout-service/pkg/outbox"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Ledger is the local record of checkout attempts. Every write also stores
// the given events in the outbox within the same transaction.
type Ledger struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewLedger(log *slog.Logger, pool *pgxpool.Pool) *Ledger {
	return &Ledger{log: log, pool: pool}
}

const attemptColumns = `idempotency_key, order_token, COALESCE(payment_id, ''), payment_status, redirect_url,
	COALESCE(order_id, 0), order_name, order_number, status, amount, checkout_data, last_error, created_at, updated_at`

func (l *Ledger) Save(ctx context.Context, a checkout.Attempt, events ...outbox.Event) error {
	data, err := json.Marshal(a.Checkout)
	if err != nil {
		return fmt.Errorf("encoding checkout data: %w", err)
	}

	tx, err := l.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `INSERT INTO checkout_attempts
			(idempotency_key, order_token, payment_id, payment_status, redirect_url, order_id, order_name, order_number, status, amount, checkout_data, last_error, created_at, updated_at)
			VALUES ($1,$2,NULLIF($3,''),$4,$5,NULLIF($6::bigint,0),$7,$8,$9,$10,$11,$12,now(),now())
			ON CONFLICT (idempotency_key) DO UPDATE SET
				order_token=EXCLUDED.order_token,
				payment_id=COALESCE(EXCLUDED.payment_id, checkout_attempts.payment_id),
				payment_status=EXCLUDED.payment_status,
				redirect_url=EXCLUDED.redirect_url,
				order_id=COALESCE(EXCLUDED.order_id, checkout_attempts.order_id),
				order_name=EXCLUDED.order_name,
				order_number=EXCLUDED.order_number,
				status=EXCLUDED.status,
				amount=EXCLUDED.amount,
				checkout_data=EXCLUDED.checkout_data,
				last_error=EXCLUDED.last_error,
				updated_at=now()`,
		a.IdempotencyKey, a.OrderToken, a.PaymentID, a.PaymentStatus, a.RedirectURL, a.OrderID, a.OrderName,
		a.OrderNumber, string(a.Status), a.Amount, data, a.LastError)
	if err != nil {
		return fmt.Errorf("upserting attempt: %w", err)
	}

	if len(events) > 0 {
		batch := &pgx.Batch{}
		for _, ev := range events {
			batch.Queue(`INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, headers, traceparent, status) VALUES ($1,$2,$3,$4,$5,$6,'pending')`,
				ev.AggregateType, ev.AggregateID, ev.Type, ev.Payload, ev.Headers, ev.Traceparent)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("writing outbox: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (l *Ledger) FindByIdempotencyKey(ctx context.Context, key string) (checkout.Attempt, error) {
	return l.findOne(ctx, `SELECT `+attemptColumns+` FROM checkout_attempts WHERE idempotency_key=$1`, key)
}

func (l *Ledger) FindByPaymentID(ctx context.Context, paymentID string) (checkout.Attempt, error) {
	return l.findOne(ctx, `SELECT `+attemptColumns+` FROM checkout_attempts WHERE payment_id=$1`, paymentID)
}

// ListStale returns attempts in one of statuses not touched since before,
// oldest first.
func (l *Ledger) ListStale(ctx context.Context, statuses []checkout.AttemptStatus, before time.Time, limit int) ([]checkout.Attempt, error) {
	names := make([]string, 0, len(statuses))
	for _, s := range statuses {
		names = append(names, string(s))
	}
	rows, err := l.pool.Query(ctx, `SELECT `+attemptColumns+` FROM checkout_attempts
		WHERE status = ANY($1) AND updated_at < $2 AND payment_id IS NOT NULL
		ORDER BY updated_at
		LIMIT $3`, names, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []checkout.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (l *Ledger) Ping(ctx context.Context) error {
	return l.pool.Ping(ctx)
}

func (l *Ledger) findOne(ctx context.Context, query string, arg any) (checkout.Attempt, error) {
	a, err := scanAttempt(l.pool.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return checkout.Attempt{}, checkout.ErrNotFound
	}
	return a, err
}

func scanAttempt(row pgx.Row) (checkout.Attempt, error) {
	var (
		a      checkout.Attempt
		status string
		data   []byte
	)
	if err := row.Scan(&a.IdempotencyKey, &a.OrderToken, &a.PaymentID, &a.PaymentStatus, &a.RedirectURL,
		&a.OrderID, &a.OrderName, &a.OrderNumber, &status, &a.Amount, &data, &a.LastError, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return checkout.Attempt{}, err
	}
	a.Status = checkout.AttemptStatus(status)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &a.Checkout); err != nil {
			return checkout.Attempt{}, fmt.Errorf("decoding checkout data: %w", err)
		}
	}
	return a, nil
}
