package models

import (
	"errors"
	"time"

	"github.com/javiertrombetta/capif-back-sub001/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CashflowMaestro is one append-only ledger entry. Exactly one detail
// FK is set, matching Tipo. SaldoResultante snapshots the cashflow's
// balance immediately after applying Monto.
//
// Ledger immutability guardrails:
// - cashflow_maestros are append-only (no updates/deletes).
// - corrections are modeled as new, offsetting entries (rechazos,
//   traspasos), never as edits.
type CashflowMaestro struct {
	ID              int             `gorm:"primary_key" json:"id"`
	CashflowId      int             `gorm:"index;not null;index:idx_cm_cashflow_lote,priority:1" json:"cashflow_id"`
	Tipo            CashflowTipo    `gorm:"type:enum('LIQUIDACION','PAGO','RECHAZO','TRASPASO');not null" json:"tipo"`
	LiquidacionId   *int            `gorm:"index" json:"liquidacion_id"`
	PagoId          *int            `gorm:"index" json:"pago_id"`
	RechazoId       *int            `gorm:"index" json:"rechazo_id"`
	TraspasoId      *int            `gorm:"index" json:"traspaso_id"`
	Monto           decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"monto"`
	SaldoResultante decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"saldo_resultante"`
	NumeroLote      int             `gorm:"not null;default:0;index;index:idx_cm_cashflow_lote,priority:2" json:"numero_lote"`
	OrdenEnLote     int             `gorm:"not null;default:0" json:"orden_en_lote"`
	Referencia      *string         `gorm:"size:64;uniqueIndex" json:"referencia"`
	CreatedBy       int             `gorm:"index" json:"created_by"`
	CorrelationId   string          `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (m *CashflowMaestro) BeforeUpdate(tx *gorm.DB) error {
	return errors.New("immutable ledger: cashflow_maestros cannot be updated")
}

func (m *CashflowMaestro) BeforeDelete(tx *gorm.DB) error {
	return errors.New("immutable ledger: cashflow_maestros cannot be deleted")
}

func (m *CashflowMaestro) BeforeCreate(tx *gorm.DB) error {
	if err := m.Tipo.Validate(); err != nil {
		return err
	}
	referencias := 0
	for _, id := range []*int{m.LiquidacionId, m.PagoId, m.RechazoId, m.TraspasoId} {
		if id != nil {
			referencias++
		}
	}
	if referencias != 1 {
		return &utils.InternalConsistencyError{
			Check:  "maestro detail reference",
			Detail: "exactly one detail id must be set",
		}
	}
	return nil
}
