package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/docbook/docbook-payments/internal/domain"
	"github.com/docbook/docbook-payments/internal/security"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const paymentColumns = `
	id, appointment_id, patient_id, doctor_id, amount_minor, currency, status,
	gateway_order_id, gateway_payment_id, payment_method, transaction_id,
	failure_reason, paid_at,
	refund_amount_minor, refund_reason, refund_transaction_id, refunded_at, refunded_by,
	created_at, updated_at`

type PaymentRepository struct {
	db     *pgxpool.Pool
	cipher *security.FieldCipher
}

func NewPaymentRepository(db *pgxpool.Pool, cipher *security.FieldCipher) *PaymentRepository {
	return &PaymentRepository{db: db, cipher: cipher}
}

func (r *PaymentRepository) Create(ctx context.Context, record *domain.PaymentRecord) error {
	query := `
		INSERT INTO payments (
			id, appointment_id, patient_id, doctor_id, amount_minor, currency, status,
			gateway_order_id, gateway_payment_id, payment_method, transaction_id,
			failure_reason, paid_at,
			refund_amount_minor, refund_reason, refund_transaction_id, refunded_at, refunded_by,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	m, err := toDBModel(record, r.cipher)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, query,
		m.ID, m.AppointmentID, m.PatientID, m.DoctorID, m.AmountMinor, m.Currency, m.Status,
		m.GatewayOrderID, m.GatewayPaymentID, m.PaymentMethod, m.TransactionID,
		m.FailureReason, m.PaidAt,
		m.RefundAmountMinor, m.RefundReason, m.RefundTransactionID, m.RefundedAt, m.RefundedBy,
		m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*domain.PaymentRecord, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	return r.scanPayment(r.db.QueryRow(ctx, query, id), id)
}

func (r *PaymentRepository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.PaymentRecord, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE gateway_order_id = $1`
	return r.scanPayment(r.db.QueryRow(ctx, query, gatewayOrderID), gatewayOrderID)
}

func (r *PaymentRepository) FindByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*domain.PaymentRecord, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE gateway_payment_id = $1`
	return r.scanPayment(r.db.QueryRow(ctx, query, gatewayPaymentID), gatewayPaymentID)
}

func (r *PaymentRepository) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*domain.PaymentRecord, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE patient_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, patientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query payments by patient_id: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.PaymentRecord, error) {
		var m PaymentModel
		if err := scanInto(row, &m); err != nil {
			return nil, err
		}
		return toDomainModel(m, r.cipher)
	})
	if err != nil {
		return nil, fmt.Errorf("scan payments by patient_id: %w", err)
	}
	return results, nil
}

// CompleteIfPending applies the pending -> completed transition and its full
// field set as one conditional update. It is the atomic step both
// confirmation paths converge on; the loser of the race gets applied=false.
func (r *PaymentRepository) CompleteIfPending(ctx context.Context, id string, capture domain.Capture) (bool, error) {
	query := `
		UPDATE payments
		SET status = $2,
			gateway_payment_id = $3,
			payment_method = NULLIF($4, ''),
			transaction_id = NULLIF($5, ''),
			paid_at = $6,
			updated_at = now()
		WHERE id = $1 AND status = $7
	`

	encTxnID := ""
	if capture.TransactionID != "" {
		enc, err := r.cipher.Encrypt(capture.TransactionID)
		if err != nil {
			return false, fmt.Errorf("encrypt transaction id: %w", err)
		}
		encTxnID = enc
	}

	tag, err := r.db.Exec(ctx, query,
		id,
		string(domain.StatusCompleted),
		capture.GatewayPaymentID,
		capture.PaymentMethod,
		encTxnID,
		capture.PaidAt,
		string(domain.StatusPending),
	)
	if err != nil {
		return false, fmt.Errorf("failed to complete payment: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// FailIfPending applies the pending -> failed transition conditionally.
func (r *PaymentRepository) FailIfPending(ctx context.Context, id string, reason string) (bool, error) {
	query := `
		UPDATE payments
		SET status = $2, failure_reason = $3, updated_at = now()
		WHERE id = $1 AND status = $4
	`

	tag, err := r.db.Exec(ctx, query,
		id,
		string(domain.StatusFailed),
		reason,
		string(domain.StatusPending),
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark payment failed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// RefundIfCompleted applies the completed -> refunded transition and the
// refund sub-record conditionally.
func (r *PaymentRepository) RefundIfCompleted(ctx context.Context, id string, refund domain.Refund) (bool, error) {
	query := `
		UPDATE payments
		SET status = $2,
			refund_amount_minor = $3,
			refund_reason = $4,
			refund_transaction_id = NULLIF($5, ''),
			refunded_at = $6,
			refunded_by = $7,
			updated_at = now()
		WHERE id = $1 AND status = $8 AND $3 <= amount_minor
	`

	encTxnID := ""
	if refund.TransactionID != "" {
		enc, err := r.cipher.Encrypt(refund.TransactionID)
		if err != nil {
			return false, fmt.Errorf("encrypt refund transaction id: %w", err)
		}
		encTxnID = enc
	}

	tag, err := r.db.Exec(ctx, query,
		id,
		string(domain.StatusRefunded),
		refund.AmountMinor,
		refund.Reason,
		encTxnID,
		refund.RefundedAt,
		refund.RefundedBy,
		string(domain.StatusCompleted),
	)
	if err != nil {
		return false, fmt.Errorf("failed to refund payment: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// AttachRefundTransaction records the gateway's refund transaction id on an
// already-refunded or completed record, keeping any locally recorded
// timestamp. Attaching to a record in any other state is a no-op; the event
// is settled either way.
func (r *PaymentRepository) AttachRefundTransaction(ctx context.Context, id string, transactionID string, processedAt time.Time) error {
	query := `
		UPDATE payments
		SET refund_transaction_id = $2,
			refunded_at = COALESCE(refunded_at, $3),
			updated_at = now()
		WHERE id = $1 AND status IN ($4, $5)
	`

	enc, err := r.cipher.Encrypt(transactionID)
	if err != nil {
		return fmt.Errorf("encrypt refund transaction id: %w", err)
	}

	_, err = r.db.Exec(ctx, query, id, enc, processedAt,
		string(domain.StatusRefunded), string(domain.StatusCompleted))
	if err != nil {
		return fmt.Errorf("failed to attach refund transaction: %w", err)
	}
	return nil
}

func (r *PaymentRepository) scanPayment(row pgx.Row, key string) (*domain.PaymentRecord, error) {
	var m PaymentModel
	if err := scanInto(row, &m); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewPaymentNotFoundError(key)
		}
		return nil, fmt.Errorf("failed to scan payment: %w", err)
	}
	return toDomainModel(m, r.cipher)
}

func scanInto(row pgx.Row, m *PaymentModel) error {
	return row.Scan(
		&m.ID, &m.AppointmentID, &m.PatientID, &m.DoctorID, &m.AmountMinor, &m.Currency, &m.Status,
		&m.GatewayOrderID, &m.GatewayPaymentID, &m.PaymentMethod, &m.TransactionID,
		&m.FailureReason, &m.PaidAt,
		&m.RefundAmountMinor, &m.RefundReason, &m.RefundTransactionID, &m.RefundedAt, &m.RefundedBy,
		&m.CreatedAt, &m.UpdatedAt,
	)
}
