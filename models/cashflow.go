package models

import (
	"time"

	"github.com/javiertrombetta/capif-back-sub001/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Cashflow is one productora's running balance. Saldo is only ever
// mutated through an appended CashflowMaestro entry, in the same
// transaction, with this row locked FOR UPDATE.
type Cashflow struct {
	ID           int             `gorm:"primary_key" json:"id"`
	ProductoraId int             `gorm:"uniqueIndex;not null" json:"productora_id"`
	Saldo        decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"saldo"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// FetchCashflowForUpdate loads (creating on first use) the productora's
// cashflow row under a FOR UPDATE lock. All appends for one productora
// serialize on this lock.
func FetchCashflowForUpdate(tx *gorm.DB, productoraId int) (*Cashflow, error) {
	var cashflow Cashflow
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("productora_id = ?", productoraId).
		First(&cashflow).Error
	if err == nil {
		return &cashflow, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	cashflow = Cashflow{ProductoraId: productoraId, Saldo: decimal.Zero}
	if err := tx.Create(&cashflow).Error; err != nil && !utils.IsDuplicateKeyErr(err) {
		return nil, err
	}
	// Re-read under the lock so a concurrent creator loses cleanly.
	err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("productora_id = ?", productoraId).
		First(&cashflow).Error
	if err != nil {
		return nil, err
	}
	return &cashflow, nil
}

func LoadCashflowEntries(tx *gorm.DB, productoraId int) ([]*CashflowMaestro, error) {
	var entries []*CashflowMaestro
	if err := tx.Joins("JOIN cashflows ON cashflows.id = cashflow_maestros.cashflow_id").
		Where("cashflows.productora_id = ?", productoraId).
		Order("cashflow_maestros.id").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
