package models

import (
	"time"

	"github.com/javiertrombetta/capif-back-sub001/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CashflowSecuenciaLote is the single last-lote marker row. It is read
// FOR UPDATE whenever a pago opens a new lote, so two concurrent
// payments can never allocate the same number. Never use a count() or
// a plain MAX() read for this.
type CashflowSecuenciaLote struct {
	ID         int       `gorm:"primary_key" json:"id"`
	UltimoLote int       `gorm:"not null;default:0" json:"ultimo_lote"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// CashflowLote tracks one lote's gap-free entry counter. Entradas is
// only bumped under the row lock, so orden values are 1..N with no
// gaps or duplicates.
type CashflowLote struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Numero    int       `gorm:"uniqueIndex;not null" json:"numero"`
	Entradas  int       `gorm:"not null;default:0" json:"entradas"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// AbrirLote allocates the next lote number under the sequence row lock
// and creates its counter row.
func AbrirLote(tx *gorm.DB) (*CashflowLote, error) {
	var secuencia CashflowSecuenciaLote
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&secuencia).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &utils.InternalConsistencyError{
				Check:  "lote sequence",
				Detail: "cashflow_secuencia_lotes row missing; run migrations",
			}
		}
		return nil, err
	}

	numero := secuencia.UltimoLote + 1
	if err := tx.Model(&CashflowSecuenciaLote{}).
		Where("id = ?", secuencia.ID).
		Update("ultimo_lote", numero).Error; err != nil {
		return nil, err
	}

	lote := CashflowLote{Numero: numero}
	if err := tx.Create(&lote).Error; err != nil {
		return nil, utils.MapDuplicateKey(err, "numero_lote", numero)
	}
	return &lote, nil
}

// FetchLoteForUpdate loads a lote's counter row under FOR UPDATE.
func FetchLoteForUpdate(tx *gorm.DB, numero int) (*CashflowLote, error) {
	var lote CashflowLote
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("numero = ?", numero).
		First(&lote).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &utils.NotFoundError{Resource: "cashflow_lotes", Id: numero}
		}
		return nil, err
	}
	return &lote, nil
}

// SiguienteOrdenEnLote bumps the locked lote's counter and returns the
// assigned orden.
func SiguienteOrdenEnLote(tx *gorm.DB, lote *CashflowLote) (int, error) {
	orden := lote.Entradas + 1
	if err := tx.Model(&CashflowLote{}).
		Where("id = ?", lote.ID).
		Update("entradas", orden).Error; err != nil {
		return 0, err
	}
	lote.Entradas = orden
	return orden, nil
}
