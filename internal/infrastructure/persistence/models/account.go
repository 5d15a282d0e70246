package models

// StorefrontAccountModel is a connected storefront whose catalog is mirrored
type StorefrontAccountModel struct {
	BaseModel
	Name        string `gorm:"type:varchar(200);not null"`
	SyncEnabled bool   `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StorefrontAccountModel) TableName() string {
	return "accounts"
}
