package models

// All returns every model in dependency order, for AutoMigrate in tests and tooling
func All() []any {
	return []any{
		&StorefrontAccountModel{},
		&SupplierModel{},
		&ProductModel{},
		&InternalStockItemModel{},
		&SupplierItemModel{},
		&BOMModel{},
		&BOMLineModel{},
		&SyncAuditLogModel{},
		&OrderLineModel{},
	}
}
