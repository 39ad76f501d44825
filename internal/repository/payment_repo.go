package repository

import (
	"context"
	"errors"

	"mpesa-payment-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.PaymentRequest) error
	GetByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*domain.PaymentRequest, error)
	GetByOrderReference(ctx context.Context, orderReference string) ([]*domain.PaymentRequest, error)
	// Resolve moves a record out of pending into the given terminal status.
	// The update is conditional on the record still being pending, which
	// makes duplicate callbacks no-ops and prevents a poll from overwriting
	// a callback-written terminal state. Returns whether a row transitioned.
	Resolve(ctx context.Context, checkoutRequestID string, status domain.PaymentStatus, resultCode, resultDescription string, receiptNumber *string) (bool, error)
}

type paymentRepo struct {
	db *pgxpool.Pool
}

func NewPaymentRepository(db *pgxpool.Pool) PaymentRepository {
	return &paymentRepo{db: db}
}

// Migrate creates the payments table if absent.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	_, err := db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS payment_requests (
			id                  TEXT PRIMARY KEY,
			checkout_request_id TEXT NOT NULL UNIQUE,
			merchant_request_id TEXT NOT NULL,
			order_reference     TEXT NOT NULL,
			phone_number        TEXT NOT NULL,
			amount              NUMERIC(12,2) NOT NULL,
			status              TEXT NOT NULL DEFAULT 'pending',
			result_code         TEXT,
			result_description  TEXT,
			receipt_number      TEXT,
			created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			resolved_at         TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_payment_requests_order_reference
			ON payment_requests (order_reference);
	`)
	return err
}

func (r *paymentRepo) Create(ctx context.Context, payment *domain.PaymentRequest) error {
	query := `
		INSERT INTO payment_requests (
			id, checkout_request_id, merchant_request_id, order_reference,
			phone_number, amount, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	return r.db.QueryRow(ctx, query,
		payment.ID,
		payment.CheckoutRequestID,
		payment.MerchantRequestID,
		payment.OrderReference,
		payment.PhoneNumber,
		payment.Amount,
		payment.Status,
	).Scan(&payment.CreatedAt)
}

const selectColumns = `
	id, checkout_request_id, merchant_request_id, order_reference,
	phone_number, amount, status, result_code, result_description,
	receipt_number, created_at, resolved_at
`

func (r *paymentRepo) GetByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*domain.PaymentRequest, error) {
	query := `SELECT ` + selectColumns + ` FROM payment_requests WHERE checkout_request_id = $1`

	payment, err := scanPayment(r.db.QueryRow(ctx, query, checkoutRequestID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return payment, nil
}

func (r *paymentRepo) GetByOrderReference(ctx context.Context, orderReference string) ([]*domain.PaymentRequest, error) {
	query := `SELECT ` + selectColumns + ` FROM payment_requests WHERE order_reference = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, orderReference)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*domain.PaymentRequest
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

func (r *paymentRepo) Resolve(ctx context.Context, checkoutRequestID string, status domain.PaymentStatus, resultCode, resultDescription string, receiptNumber *string) (bool, error) {
	query := `
		UPDATE payment_requests
		SET
			status = $2,
			result_code = $3,
			result_description = $4,
			receipt_number = COALESCE($5, receipt_number),
			resolved_at = NOW()
		WHERE checkout_request_id = $1 AND status = 'pending'
	`

	tag, err := r.db.Exec(ctx, query, checkoutRequestID, status, resultCode, resultDescription, receiptNumber)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (*domain.PaymentRequest, error) {
	var payment domain.PaymentRequest
	err := row.Scan(
		&payment.ID,
		&payment.CheckoutRequestID,
		&payment.MerchantRequestID,
		&payment.OrderReference,
		&payment.PhoneNumber,
		&payment.Amount,
		&payment.Status,
		&payment.ResultCode,
		&payment.ResultDescription,
		&payment.ReceiptNumber,
		&payment.CreatedAt,
		&payment.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}
