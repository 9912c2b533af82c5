package models

import "time"

// Productora is a rights-holding entity. Identity lives upstream; the
// core only needs the row for existence checks and the cashflow FK.
type Productora struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Nombre    string    `gorm:"size:255;not null" json:"nombre"`
	Cuit      string    `gorm:"size:13;uniqueIndex" json:"cuit"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
