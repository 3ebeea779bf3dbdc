package persistence

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/erp/payables/internal/domain/payables"
	"github.com/erp/payables/internal/domain/shared/valueobject"
	"github.com/erp/payables/internal/infrastructure/persistence/models"
)

const checkPreviewColumns = `
	inv.id                        AS invoice_id,
	vend.number                   AS vendor_number,
	vend.name                     AS vendor_name,
	vend.address1                 AS address1,
	vend.address2                 AS address2,
	vend.city                     AS city,
	vend.state                    AS state,
	vend.postal_code              AS postal_code,
	inv.separate_check_indicator  AS pay_separately,
	inv.invoice                   AS invoice_number,
	inv.invoice_date              AS invoice_date,
	inv.due_date                  AS due_date,
	inv.invoice_amount            AS gross,
	inv.discount_amount           AS discount_amount,
	inv.discount_percent          AS discount_percent,
	inv.purchase_order_number     AS purchase_order_number,
	inv.message                   AS note`

// payAfterDiscount is the company's AP control flag, false when the company has no control row
const payAfterDiscount = "COALESCE(ctl.pay_after_discount_date, FALSE)"

// checkPreviewRecord is one scanned row of the check preview query
type checkPreviewRecord struct {
	InvoiceID           uuid.UUID
	VendorNumber        int64
	VendorName          string
	Address1            string  `gorm:"column:address1"`
	Address2            *string `gorm:"column:address2"`
	City                string
	State               string
	PostalCode          *string
	PaySeparately       bool
	InvoiceNumber       string
	InvoiceDate         time.Time
	DueDate             time.Time
	Gross               decimal.Decimal
	DiscountAmount      decimal.Decimal
	DiscountPercent     decimal.NullDecimal
	PurchaseOrderNumber *int64
	Note                *string
}

func (r *checkPreviewRecord) toInvoiceRow() payables.InvoiceRow {
	var opts []valueobject.AddressOption
	if r.Address2 != nil {
		opts = append(opts, valueobject.WithLine2(*r.Address2))
	}
	if r.PostalCode != nil {
		opts = append(opts, valueobject.WithPostalCode(*r.PostalCode))
	}

	row := payables.InvoiceRow{
		InvoiceID:       r.InvoiceID,
		VendorNumber:    r.VendorNumber,
		VendorName:      r.VendorName,
		Address:         valueobject.NewAddress(r.Address1, r.City, r.State, opts...),
		PaySeparately:   r.PaySeparately,
		InvoiceNumber:   r.InvoiceNumber,
		InvoiceDate:     r.InvoiceDate,
		DueDate:         r.DueDate,
		Gross:           r.Gross,
		DiscountAmount:  r.DiscountAmount,
		DiscountPercent: r.DiscountPercent,
	}
	if r.PurchaseOrderNumber != nil {
		row.PurchaseOrderNumber = *r.PurchaseOrderNumber
	}
	if r.Note != nil {
		row.Note = *r.Note
	}
	return row
}

// GormCheckPreviewRepository implements payables.InvoiceRowSource using GORM
type GormCheckPreviewRepository struct {
	db *gorm.DB
}

// NewGormCheckPreviewRepository creates a new GormCheckPreviewRepository
func NewGormCheckPreviewRepository(db *gorm.DB) *GormCheckPreviewRepository {
	return &GormCheckPreviewRepository{db: db}
}

// StreamCheckPreviewRows yields the open invoices selected by filter in
// check print order. Rows are scanned one at a time from the cursor, so a
// large run is never materialized here.
func (r *GormCheckPreviewRepository) StreamCheckPreviewRows(ctx context.Context, filter payables.CheckPreviewFilter) iter.Seq2[payables.InvoiceRow, error] {
	return func(yield func(payables.InvoiceRow, error) bool) {
		query := r.db.WithContext(ctx)
		rows, err := r.buildQuery(query, filter).Rows()
		if err != nil {
			yield(payables.InvoiceRow{}, fmt.Errorf("check preview query: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var rec checkPreviewRecord
			if err := query.ScanRows(rows, &rec); err != nil {
				yield(payables.InvoiceRow{}, fmt.Errorf("scan check preview row: %w", err))
				return
			}
			if !yield(rec.toInvoiceRow(), nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(payables.InvoiceRow{}, fmt.Errorf("check preview rows: %w", err))
		}
	}
}

// buildQuery applies the company, status, vendor group, due date and
// discount date rules and the sort order
func (r *GormCheckPreviewRepository) buildQuery(db *gorm.DB, filter payables.CheckPreviewFilter) *gorm.DB {
	q := db.Table(models.AccountPayableInvoiceModel{}.TableName()+" AS inv").
		Select(checkPreviewColumns).
		Joins("JOIN vendors vend ON vend.id = inv.vendor_id").
		Joins("JOIN vendors pay_to ON pay_to.id = inv.pay_to_id").
		Joins("LEFT JOIN account_payable_controls ctl ON ctl.company_id = inv.company_id").
		Where("inv.company_id = ?", filter.CompanyID).
		Where("inv.status = ?", models.InvoiceStatusOpen).
		Where("inv.deleted = ?", false)

	if filter.VendorGroup != "" {
		q = q.Where("pay_to.vendor_group = ?", filter.VendorGroup)
	}
	if filter.DueDate != nil {
		q = q.Where("inv.due_date <= ?", *filter.DueDate)
	}
	if filter.DiscountDate != nil {
		q = q.Where(
			"(("+payAfterDiscount+" = TRUE AND inv.discount_date >= ?) OR "+
				"("+payAfterDiscount+" = FALSE AND inv.discount_date <= ? AND inv.discount_date >= ?))",
			*filter.DiscountDate, *filter.DiscountDate, filter.CheckDate,
		)
	}

	switch filter.SortBy {
	case payables.SortByVendorNumber:
		q = q.Order("vend.number")
	default:
		q = q.Order("vend.name").Order("vend.number")
	}
	return q.Order("inv.invoice_date").Order("inv.invoice").Order("inv.id")
}

var _ payables.InvoiceRowSource = (*GormCheckPreviewRepository)(nil)
