package services

import (
	"context"

	"github.com/docbook/docbook-payments/internal/application"
	"github.com/docbook/docbook-payments/internal/domain"
)

// QueryService serves read-only projections of payment records.
type QueryService struct {
	paymentRepo application.PaymentRepository
}

func NewQueryService(paymentRepo application.PaymentRepository) *QueryService {
	return &QueryService{paymentRepo: paymentRepo}
}

func (s *QueryService) GetPayment(ctx context.Context, id string) (*domain.PaymentRecord, error) {
	if id == "" {
		return nil, application.NewValidationError(domain.NewMissingRequiredFieldError("payment ID"))
	}
	record, err := s.paymentRepo.FindByID(ctx, id)
	if err != nil {
		if domain.IsErrorCode(err, domain.ErrCodePaymentNotFound) {
			return nil, application.NewNotFoundError(err)
		}
		return nil, application.NewInternalError(err)
	}
	return record, nil
}

func (s *QueryService) ListPatientPayments(ctx context.Context, patientID string, limit, offset int) ([]*domain.PaymentRecord, error) {
	if patientID == "" {
		return nil, application.NewValidationError(domain.NewMissingRequiredFieldError("patient ID"))
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	records, err := s.paymentRepo.ListByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, application.NewInternalError(err)
	}
	return records, nil
}
