package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/erp/payables/internal/domain/payables"
	"github.com/erp/payables/internal/domain/shared"
	"github.com/erp/payables/internal/infrastructure/persistence/models"
)

const joinActiveBank = "JOIN banks ON banks.id = account_payable_payments.bank_id AND banks.deleted = ?"

// GormPaymentRepository implements payables.PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindUsedCheckNumbers returns which of numbers already appear as payment
// numbers for the company's bank. Each used number is returned once.
func (r *GormPaymentRepository) FindUsedCheckNumbers(ctx context.Context, companyID uuid.UUID, bankNumber int64, numbers []string) ([]string, error) {
	if len(numbers) == 0 {
		return nil, nil
	}

	var used []string
	err := r.db.WithContext(ctx).
		Model(&models.AccountPayablePaymentModel{}).
		Joins(joinActiveBank, false).
		Where("account_payable_payments.company_id = ?", companyID).
		Where("banks.number = ?", bankNumber).
		Where("account_payable_payments.payment_number IN ?", numbers).
		Distinct().
		Pluck("account_payable_payments.payment_number", &used).Error
	if err != nil {
		return nil, fmt.Errorf("find used check numbers: %w", err)
	}
	return used, nil
}

// FindByBankAndNumber finds a check by bank and check number
func (r *GormPaymentRepository) FindByBankAndNumber(ctx context.Context, companyID uuid.UUID, bankNumber int64, number payables.CheckNumber) (*payables.Payment, error) {
	var model models.AccountPayablePaymentModel
	err := r.db.WithContext(ctx).
		Joins(joinActiveBank, false).
		Preload("Bank").
		Preload("Vendor").
		Preload("Details.Invoice").
		Where("account_payable_payments.company_id = ?", companyID).
		Where("banks.number = ?", bankNumber).
		Where("account_payable_payments.payment_number = ?", number.String()).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("find check %s for bank %d: %w", number, bankNumber, err)
	}
	return model.ToDomain(), nil
}

// Save writes the payment's status fields with optimistic locking.
// The domain has already incremented Version, so the stored row must
// still hold Version-1.
func (r *GormPaymentRepository) Save(ctx context.Context, payment *payables.Payment) error {
	result := r.db.WithContext(ctx).
		Model(&models.AccountPayablePaymentModel{}).
		Where("id = ? AND version = ?", payment.ID, payment.Version-1).
		Updates(map[string]any{
			"status":       payment.Status,
			"date_cleared": payment.DateCleared,
			"date_voided":  payment.DateVoided,
			"version":      payment.Version,
			"updated_at":   payment.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("save check %s: %w", payment.Number, result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrentModification
	}
	return nil
}

var _ payables.PaymentRepository = (*GormPaymentRepository)(nil)
