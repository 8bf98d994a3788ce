package models

import (
	"vpass/src/types"
)

type User struct {
	ID       uint       `gorm:"primarykey" json:"id"`
	TenantID uint       `gorm:"index" json:"tenant_id"`
	Name     string     `json:"name,omitempty"`
	Email    string     `gorm:"uniqueIndex" json:"email,omitempty"`
	Role     types.Role `gorm:"type:text" json:"role,omitempty"`

	Tenant *Tenant `gorm:"foreignKey:tenant_id" json:"-"`

	types.Timestamps
}
