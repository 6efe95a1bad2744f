package models

import (
	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/catalog"
)

// ProductModel is the persistence model for a catalog product
type ProductModel struct {
	ID     int64   `gorm:"column:id;primaryKey;autoIncrement"`
	ItemID int64   `gorm:"column:item_id"`
	Nombre *string `gorm:"column:nombre"`
	EAN    string  `gorm:"column:ean"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "productos"
}

// ToDomain converts the persistence model to a domain Product
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		ID:     m.ID,
		ItemID: m.ItemID,
		Name:   stringValue(m.Nombre),
		EAN:    m.EAN,
	}
}

// ProductModelFromDomain creates a persistence model from a domain Product
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	name := p.Name
	return &ProductModel{
		ID:     p.ID,
		ItemID: p.ItemID,
		Nombre: &name,
		EAN:    p.EAN,
	}
}
