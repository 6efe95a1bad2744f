// Package models contains GORM-specific persistence models that map to the
// tables of the local store. The table and column names are those of stores
// created by earlier app versions, so they stay in Spanish.
//
// Structure:
// - base.go: timestamp encoding shared by every model
// - catalog.go: productos
// - receiving.go: albaranes, albaran_items
// - ledger.go: saldo_global, saldo_movimientos and their manual twins
// - settings.go: app_settings
// - import_history.go: import_history
package models
