package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel carries the surrogate key and audit timestamps
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// BeforeCreate assigns a random ID to rows inserted without one
func (m *BaseModel) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// AccountModel scopes a row to one storefront account; every catalog and
// stock query filters on account_id.
type AccountModel struct {
	BaseModel
	AccountID uuid.UUID `gorm:"type:uuid;not null;index"`
}
