// Package models contains GORM persistence models for the inventory catalog,
// the sync audit trail and the sales history read by the forecaster.
//
// Models carry all GORM annotations and table mappings and convert to domain
// types with ToDomain, so the domain packages stay free of ORM concerns.
//
// Structure:
//   - base.go: common fields (BaseModel, AccountModel)
//   - catalog.go: products, bills of materials and their lines
//   - inventory.go: internal stock items, supplier items and suppliers
//   - sync.go: append-only sync audit log
//   - sales.go: order lines used as sales history
//   - account.go: storefront accounts
package models
