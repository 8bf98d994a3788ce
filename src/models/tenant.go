package models

import "vpass/src/types"

type Tenant struct {
	ID   uint   `gorm:"primarykey" json:"id"`
	Name string `json:"name"`

	Users []User `gorm:"foreignKey:tenant_id" json:"-"`

	types.Timestamps
}
