package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/erp/payables/internal/domain/payables"
)

// VendorModel is the persistence model for a vendor (pay-to party)
type VendorModel struct {
	CompanyModel
	Number        int64   `gorm:"not null;uniqueIndex:uq_vendors_company_number,priority:2"`
	Name          string  `gorm:"type:varchar(30);not null"`
	Address1      string  `gorm:"column:address1;type:varchar(30);not null;default:''"`
	Address2      *string `gorm:"column:address2;type:varchar(30)"`
	City          string  `gorm:"type:varchar(20);not null;default:''"`
	State         string  `gorm:"type:varchar(2);not null;default:''"`
	PostalCode    *string `gorm:"type:varchar(10)"`
	VendorGroup   *string `gorm:"type:varchar(10)"`
	SeparateCheck bool    `gorm:"not null;default:false"`
	Deleted       bool    `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (VendorModel) TableName() string {
	return "vendors"
}

// AccountPayableControlModel holds the company-wide AP settings
type AccountPayableControlModel struct {
	CompanyModel
	PayAfterDiscountDate bool `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (AccountPayableControlModel) TableName() string {
	return "account_payable_controls"
}

// AccountPayableInvoiceModel is the persistence model for a vendor invoice
type AccountPayableInvoiceModel struct {
	CompanyModel
	VendorID               uuid.UUID           `gorm:"type:uuid;not null"`
	PayToID                uuid.UUID           `gorm:"type:uuid;not null"`
	Invoice                string              `gorm:"type:varchar(20);not null"`
	PurchaseOrderNumber    *int64              `gorm:"column:purchase_order_number"`
	InvoiceDate            time.Time           `gorm:"type:date;not null"`
	DueDate                time.Time           `gorm:"type:date;not null"`
	DiscountDate           *time.Time          `gorm:"type:date"`
	InvoiceAmount          decimal.Decimal     `gorm:"type:numeric(13,2);not null"`
	DiscountAmount         decimal.Decimal     `gorm:"type:numeric(13,2);not null"`
	DiscountPercent        decimal.NullDecimal `gorm:"type:numeric(8,7)"`
	SeparateCheckIndicator bool                `gorm:"not null;default:false"`
	Message                *string             `gorm:"type:text"`
	Status                 string              `gorm:"type:varchar(1);not null;default:'O'"`
	Deleted                bool                `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (AccountPayableInvoiceModel) TableName() string {
	return "account_payable_invoices"
}

// Invoice statuses
const (
	InvoiceStatusOpen = "O"
	InvoiceStatusHold = "H"
	InvoiceStatusPaid = "P"
)

// BankModel is a company bank account checks are drawn on
type BankModel struct {
	CompanyModel
	Number  int64  `gorm:"not null;uniqueIndex:uq_banks_company_number,priority:2"`
	Name    string `gorm:"type:varchar(30);not null"`
	Deleted bool   `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (BankModel) TableName() string {
	return "banks"
}

// AccountPayablePaymentModel is a check in the payment ledger
type AccountPayablePaymentModel struct {
	CompanyModel
	BankID        uuid.UUID                          `gorm:"type:uuid;not null"`
	Bank          BankModel                          `gorm:"foreignKey:BankID"`
	VendorID      uuid.UUID                          `gorm:"type:uuid;not null"`
	Vendor        VendorModel                        `gorm:"foreignKey:VendorID"`
	PaymentNumber string                             `gorm:"type:varchar(20);not null"`
	PaymentDate   time.Time                          `gorm:"type:date;not null"`
	Amount        decimal.Decimal                    `gorm:"type:numeric(13,2);not null"`
	Status        payables.PaymentStatus             `gorm:"type:varchar(1);not null;default:'O'"`
	DateCleared   *time.Time                         `gorm:"type:date"`
	DateVoided    *time.Time                         `gorm:"type:date"`
	Version       int                                `gorm:"not null;default:1"`
	Details       []AccountPayablePaymentDetailModel `gorm:"foreignKey:PaymentID"`
}

// TableName returns the table name for GORM
func (AccountPayablePaymentModel) TableName() string {
	return "account_payable_payments"
}

// ToDomain converts the persistence model to a domain Payment.
// Bank, Vendor and Details.Invoice must be loaded.
func (m *AccountPayablePaymentModel) ToDomain() *payables.Payment {
	p := &payables.Payment{
		ID:           m.ID,
		CompanyID:    m.CompanyID,
		BankNumber:   m.Bank.Number,
		VendorNumber: m.Vendor.Number,
		VendorName:   m.Vendor.Name,
		Number:       m.PaymentNumber,
		Amount:       m.Amount,
		PaymentDate:  m.PaymentDate,
		Status:       m.Status,
		DateCleared:  m.DateCleared,
		DateVoided:   m.DateVoided,
		Version:      m.Version,
		UpdatedAt:    m.UpdatedAt,
		Details:      make([]payables.PaymentDetail, len(m.Details)),
	}
	for i, d := range m.Details {
		p.Details[i] = d.ToDomain()
	}
	return p
}

// AccountPayablePaymentDetailModel links a payment to one invoice it settles
type AccountPayablePaymentDetailModel struct {
	ID        uuid.UUID                  `gorm:"type:uuid;primary_key"`
	PaymentID uuid.UUID                  `gorm:"type:uuid;not null;index"`
	InvoiceID uuid.UUID                  `gorm:"type:uuid;not null"`
	Invoice   AccountPayableInvoiceModel `gorm:"foreignKey:InvoiceID"`
	Amount    decimal.Decimal            `gorm:"type:numeric(13,2);not null"`
	Discount  decimal.Decimal            `gorm:"type:numeric(13,2);not null"`
}

// TableName returns the table name for GORM
func (AccountPayablePaymentDetailModel) TableName() string {
	return "account_payable_payment_details"
}

// ToDomain converts the persistence model to a domain PaymentDetail
func (m *AccountPayablePaymentDetailModel) ToDomain() payables.PaymentDetail {
	return payables.PaymentDetail{
		InvoiceID:     m.InvoiceID,
		InvoiceNumber: m.Invoice.Invoice,
		Amount:        m.Amount,
		Discount:      m.Discount,
	}
}
