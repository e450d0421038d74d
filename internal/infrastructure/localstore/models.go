package localstore

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pos/backend/internal/domain/catalog"
	"github.com/pos/backend/internal/domain/sale"
	"github.com/pos/backend/internal/domain/shared"
	"github.com/pos/backend/internal/domain/till"
)

// BaseModel provides common persistence fields for all local models
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// ToDomain converts BaseModel to domain BaseEntity
func (m *BaseModel) ToDomain() shared.BaseEntity {
	return shared.BaseEntity{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomainBaseEntity populates BaseModel from domain BaseEntity
func (m *BaseModel) FromDomainBaseEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// TransactionModel is the durable form of a captured sale. Line items and
// tender slices are embedded as JSON: the queue reads whole records and
// never queries into them.
type TransactionModel struct {
	BaseModel
	ExternalID string `gorm:"index"`
	DedupeKey  string `gorm:"index"`

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
	LocationID uuid.UUID `gorm:"type:uuid;not null"`
	TillID     uuid.UUID `gorm:"type:uuid;not null;index"`

	Status string `gorm:"not null;index"`

	Synced        bool `gorm:"not null;default:false;index"`
	SyncedAt      *time.Time
	SyncAttempts  int       `gorm:"not null;default:0"`
	ServerID      uuid.UUID `gorm:"type:uuid"`
	Invalid       bool      `gorm:"not null;default:false"`
	InvalidReason string
}

// TableName specifies the table name
func (TransactionModel) TableName() string {
	return "transactions"
}

// FromDomain populates the model from a domain transaction
func (m *TransactionModel) FromDomain(tx *sale.Transaction) {
	m.FromDomainBaseEntity(tx.BaseEntity)
	m.ExternalID = tx.ExternalID
	m.DedupeKey = tx.DedupeKey
	m.Items = tx.Items
	m.Subtotal = tx.Subtotal
	m.Tax = tx.Tax
	m.Discount = tx.Discount
	m.Total = tx.Total
	m.TenderPayments = tx.TenderPayments
	m.TenderType = tx.TenderType
	m.AmountPaid = tx.AmountPaid
	m.Change = tx.Change
	m.StaffID = tx.StaffID
	m.StaffName = tx.StaffName
	m.LocationID = tx.LocationID
	m.TillID = tx.TillID
	m.Status = tx.Status.String()
	m.Synced = tx.Synced
	m.SyncedAt = tx.SyncedAt
	m.SyncAttempts = tx.SyncAttempts
	m.ServerID = tx.ServerID
	m.Invalid = tx.Invalid
	m.InvalidReason = tx.InvalidReason
}

// ToDomain converts the model to a domain transaction
func (m *TransactionModel) ToDomain() *sale.Transaction {
	return &sale.Transaction{
		BaseEntity:     m.BaseModel.ToDomain(),
		ExternalID:     m.ExternalID,
		DedupeKey:      m.DedupeKey,
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
		Synced:         m.Synced,
		SyncedAt:       m.SyncedAt,
		SyncAttempts:   m.SyncAttempts,
		ServerID:       m.ServerID,
		Invalid:        m.Invalid,
		InvalidReason:  m.InvalidReason,
	}
}

// TillModel is the durable form of a till session
type TillModel struct {
	BaseModel
	StoreID    uuid.UUID `gorm:"type:uuid"`
	LocationID uuid.UUID `gorm:"type:uuid;not null;index"`
	StaffID    uuid.UUID `gorm:"type:uuid;not null;index"`
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

	LocalOnly bool `gorm:"not null;default:false"`
}

// TableName specifies the table name
func (TillModel) TableName() string {
	return "tills"
}

// FromDomain populates the model from a domain till
func (m *TillModel) FromDomain(t *till.Till) {
	m.FromDomainBaseEntity(t.BaseEntity)
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
	m.LocalOnly = t.LocalOnly
}

// ToDomain converts the model to a domain till
func (m *TillModel) ToDomain() *till.Till {
	return &till.Till{
		BaseEntity:           m.BaseModel.ToDomain(),
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
		LocalOnly:            m.LocalOnly,
	}
}

// PendingCloseModel is the durable form of an offline-captured till close
type PendingCloseModel struct {
	BaseModel
	TillID       uuid.UUID                  `gorm:"type:uuid;not null;uniqueIndex"`
	TenderCounts map[string]decimal.Decimal `gorm:"serializer:json"`
	Notes        string
	Summary      *till.ClosingSummary `gorm:"serializer:json"`

	Synced       bool `gorm:"not null;default:false;index"`
	SyncedAt     *time.Time
	SyncAttempts int `gorm:"not null;default:0"`
}

// TableName specifies the table name
func (PendingCloseModel) TableName() string {
	return "pending_till_closes"
}

// FromDomain populates the model from a domain pending close
func (m *PendingCloseModel) FromDomain(p *till.PendingTillClose) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.TillID = p.TillID
	m.TenderCounts = p.TenderCounts
	m.Notes = p.Notes
	m.Summary = p.Summary
	m.Synced = p.Synced
	m.SyncedAt = p.SyncedAt
	m.SyncAttempts = p.SyncAttempts
}

// ToDomain converts the model to a domain pending close
func (m *PendingCloseModel) ToDomain() *till.PendingTillClose {
	return &till.PendingTillClose{
		BaseEntity:   m.BaseModel.ToDomain(),
		TillID:       m.TillID,
		TenderCounts: m.TenderCounts,
		Notes:        m.Notes,
		Summary:      m.Summary,
		Synced:       m.Synced,
		SyncedAt:     m.SyncedAt,
		SyncAttempts: m.SyncAttempts,
	}
}

// OpenMappingModel records a local-to-server till id assignment
type OpenMappingModel struct {
	LocalTillID  uuid.UUID `gorm:"type:uuid;primary_key"`
	ServerTillID uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt    time.Time `gorm:"not null"`
	Applied      bool      `gorm:"not null;default:false;index"`
	AppliedAt    *time.Time
}

// TableName specifies the table name
func (OpenMappingModel) TableName() string {
	return "till_open_mappings"
}

// FromDomain populates the model from a domain mapping
func (m *OpenMappingModel) FromDomain(mapping *till.TillOpenMapping) {
	m.LocalTillID = mapping.LocalTillID
	m.ServerTillID = mapping.ServerTillID
	m.CreatedAt = mapping.CreatedAt
	m.Applied = mapping.Applied
	m.AppliedAt = mapping.AppliedAt
}

// ToDomain converts the model to a domain mapping
func (m *OpenMappingModel) ToDomain() *till.TillOpenMapping {
	return &till.TillOpenMapping{
		LocalTillID:  m.LocalTillID,
		ServerTillID: m.ServerTillID,
		CreatedAt:    m.CreatedAt,
		Applied:      m.Applied,
		AppliedAt:    m.AppliedAt,
	}
}

// ProductModel is the cached catalog product
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
	return "catalog_products"
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

// CategoryModel is the cached catalog category
type CategoryModel struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key"`
	Name     string    `gorm:"not null"`
	ParentID *uuid.UUID
	Position int `gorm:"not null;default:0"`
}

// TableName specifies the table name
func (CategoryModel) TableName() string {
	return "catalog_categories"
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

// SchemaInfoModel tracks the local store's schema version
type SchemaInfoModel struct {
	ID      int `gorm:"primary_key"`
	Version int `gorm:"not null"`
}

// TableName specifies the table name
func (SchemaInfoModel) TableName() string {
	return "schema_info"
}
