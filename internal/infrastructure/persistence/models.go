package persistence

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pos/backend/internal/domain/catalog"
	"github.com/pos/backend/internal/domain/ledger"
	"github.com/pos/backend/internal/domain/sale"
	"github.com/pos/backend/internal/domain/shared"
	"github.com/pos/backend/internal/domain/till"
)

// EntryModel is the admitted-transaction row. The unique index on key is
// what makes ingestion exactly-once under concurrent submission.
type EntryModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	Key          string    `gorm:"not null;uniqueIndex"`
	TerminalTxID uuid.UUID `gorm:"type:uuid;not null"`

	Items    []sale.Item `gorm:"serializer:json;not null"`
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal

	TenderPayments []sale.TenderPayment `gorm:"serializer:json"`
	TenderType     string
	AmountPaid     decimal.Decimal
	Change         decimal.Decimal

	StaffID    uuid.UUID `gorm:"type:uuid;not null"`
	StaffName  string    `gorm:"not null"`
	LocationID uuid.UUID `gorm:"type:uuid;not null;index"`
	TillID     uuid.UUID `gorm:"type:uuid;not null;index"`

	Status     string    `gorm:"not null"`
	CapturedAt time.Time `gorm:"not null"`
}

// TableName specifies the table name
func (EntryModel) TableName() string {
	return "ledger_entries"
}

// FromDomain populates the model from a ledger entry
func (m *EntryModel) FromDomain(e *ledger.Entry) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
	m.Key = e.Key
	m.TerminalTxID = e.TerminalTxID
	m.Items = e.Items
	m.Subtotal = e.Subtotal
	m.Tax = e.Tax
	m.Discount = e.Discount
	m.Total = e.Total
	m.TenderPayments = e.TenderPayments
	m.TenderType = e.TenderType
	m.AmountPaid = e.AmountPaid
	m.Change = e.Change
	m.StaffID = e.StaffID
	m.StaffName = e.StaffName
	m.LocationID = e.LocationID
	m.TillID = e.TillID
	m.Status = e.Status.String()
	m.CapturedAt = e.CapturedAt
}

// ToDomain converts the model to a ledger entry
func (m *EntryModel) ToDomain() *ledger.Entry {
	return &ledger.Entry{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Key:            m.Key,
		TerminalTxID:   m.TerminalTxID,
		Items:          m.Items,
		Subtotal:       m.Subtotal,
		Tax:            m.Tax,
		Discount:       m.Discount,
		Total:          m.Total,
		TenderPayments: m.TenderPayments,
		TenderType:     m.TenderType,
		AmountPaid:     m.AmountPaid,
		Change:         m.Change,
		StaffID:        m.StaffID,
		StaffName:      m.StaffName,
		LocationID:     m.LocationID,
		TillID:         m.TillID,
		Status:         sale.Status(m.Status),
		CapturedAt:     m.CapturedAt,
	}
}

// TillModel is the server-side till session row
type TillModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	StoreID    uuid.UUID `gorm:"type:uuid"`
	LocationID uuid.UUID `gorm:"type:uuid;not null;index:idx_tills_staff_location"`
	StaffID    uuid.UUID `gorm:"type:uuid;not null;index:idx_tills_staff_location"`
	StaffName  string    `gorm:"not null"`

	OpeningBalance decimal.Decimal
	OpenedAt       time.Time `gorm:"not null"`
	ClosedAt       *time.Time
	Status         string `gorm:"not null;index"`

	TotalSales           decimal.Decimal
	TenderBreakdown      till.TenderBreakdown `gorm:"serializer:json"`
	LinkedTransactionIDs []uuid.UUID          `gorm:"serializer:json"`

	ClosingNotes string
	Summary      *till.ClosingSummary `gorm:"serializer:json"`
}

// TableName specifies the table name
func (TillModel) TableName() string {
	return "tills"
}

// FromDomain populates the model from a domain till
func (m *TillModel) FromDomain(t *till.Till) {
	m.ID = t.ID
	m.CreatedAt = t.CreatedAt
	m.UpdatedAt = t.UpdatedAt
	m.StoreID = t.StoreID
	m.LocationID = t.LocationID
	m.StaffID = t.StaffID
	m.StaffName = t.StaffName
	m.OpeningBalance = t.OpeningBalance
	m.OpenedAt = t.OpenedAt
	m.ClosedAt = t.ClosedAt
	m.Status = t.Status.String()
	m.TotalSales = t.TotalSales
	m.TenderBreakdown = t.TenderBreakdown
	m.LinkedTransactionIDs = t.LinkedTransactionIDs
	m.ClosingNotes = t.ClosingNotes
	m.Summary = t.Summary
}

// ToDomain converts the model to a domain till
func (m *TillModel) ToDomain() *till.Till {
	return &till.Till{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		StoreID:              m.StoreID,
		LocationID:           m.LocationID,
		StaffID:              m.StaffID,
		StaffName:            m.StaffName,
		OpeningBalance:       m.OpeningBalance,
		OpenedAt:             m.OpenedAt,
		ClosedAt:             m.ClosedAt,
		Status:               till.TillStatus(m.Status),
		TotalSales:           m.TotalSales,
		TenderBreakdown:      m.TenderBreakdown,
		LinkedTransactionIDs: m.LinkedTransactionIDs,
		ClosingNotes:         m.ClosingNotes,
		Summary:              m.Summary,
	}
}

// ProductModel is the master catalog product row
type ProductModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	Name       string    `gorm:"not null"`
	SKU        string    `gorm:"index"`
	Barcode    string    `gorm:"index"`
	CategoryID uuid.UUID `gorm:"type:uuid;index"`
	Price      decimal.Decimal
	TaxRate    decimal.Decimal
	Active     bool      `gorm:"not null;default:true"`
	UpdatedAt  time.Time `gorm:"not null"`
}

// TableName specifies the table name
func (ProductModel) TableName() string {
	return "products"
}

// FromDomain populates the model from a domain product
func (m *ProductModel) FromDomain(p catalog.Product) {
	m.ID = p.ID
	m.Name = p.Name
	m.SKU = p.SKU
	m.Barcode = p.Barcode
	m.CategoryID = p.CategoryID
	m.Price = p.Price
	m.TaxRate = p.TaxRate
	m.Active = p.Active
	m.UpdatedAt = p.UpdatedAt
}

// ToDomain converts the model to a domain product
func (m *ProductModel) ToDomain() catalog.Product {
	return catalog.Product{
		ID:         m.ID,
		Name:       m.Name,
		SKU:        m.SKU,
		Barcode:    m.Barcode,
		CategoryID: m.CategoryID,
		Price:      m.Price,
		TaxRate:    m.TaxRate,
		Active:     m.Active,
		UpdatedAt:  m.UpdatedAt,
	}
}

// CategoryModel is the master catalog category row
type CategoryModel struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key"`
	Name     string    `gorm:"not null"`
	ParentID *uuid.UUID
	Position int `gorm:"not null;default:0"`
}

// TableName specifies the table name
func (CategoryModel) TableName() string {
	return "categories"
}

// FromDomain populates the model from a domain category
func (m *CategoryModel) FromDomain(c catalog.Category) {
	m.ID = c.ID
	m.Name = c.Name
	m.ParentID = c.ParentID
	m.Position = c.Position
}

// ToDomain converts the model to a domain category
func (m *CategoryModel) ToDomain() catalog.Category {
	return catalog.Category{
		ID:       m.ID,
		Name:     m.Name,
		ParentID: m.ParentID,
		Position: m.Position,
	}
}
