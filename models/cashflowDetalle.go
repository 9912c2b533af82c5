package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Detail records are immutable once created; each is referenced by
// exactly one (traspaso: two) maestro entries.

// CashflowLiquidacion is a royalty accrual for one fonograma/ISRC over
// a retroactive period.
type CashflowLiquidacion struct {
	ID                int             `gorm:"primary_key" json:"id"`
	FonogramaId       int             `gorm:"index;not null" json:"fonograma_id"`
	Isrc              string          `gorm:"size:15;index;not null" json:"isrc"`
	Monto             decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"monto"`
	PeriodoRetroDesde *time.Time      `json:"periodo_retro_desde"`
	PeriodoRetroHasta *time.Time      `json:"periodo_retro_hasta"`
	Concepto          string          `gorm:"size:255" json:"concepto"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// CashflowPago groups accrued liquidaciones into one payout inside a
// lote. Monto is always <= 0.
type CashflowPago struct {
	ID             int             `gorm:"primary_key" json:"id"`
	Monto          decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"monto"`
	MontoRetencion decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"monto_retencion"`
	Concepto       string          `gorm:"size:255" json:"concepto"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// CashflowRechazo reverses part or all of a prior pago. Monto is
// always >= 0 and the rechazos of one pago never exceed its amount.
type CashflowRechazo struct {
	ID        int             `gorm:"primary_key" json:"id"`
	PagoId    int             `gorm:"index;not null" json:"pago_id"`
	Monto     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"monto"`
	Motivo    string          `gorm:"size:255" json:"motivo"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// CashflowTraspaso moves accrued value between productoras, either
// holder-wide (GENERAL) or scoped to one ISRC and a percentage.
type CashflowTraspaso struct {
	ID                   int              `gorm:"primary_key" json:"id"`
	ProductoraOrigenId   int              `gorm:"index;not null" json:"productora_origen_id"`
	ProductoraDestinoId  int              `gorm:"index;not null" json:"productora_destino_id"`
	Alcance              TraspasoAlcance  `gorm:"type:enum('GENERAL','FONOGRAMA');not null" json:"alcance"`
	Isrc                 *string          `gorm:"size:15;index" json:"isrc"`
	Porcentaje           *decimal.Decimal `gorm:"type:decimal(20,4)" json:"porcentaje"`
	Monto                decimal.Decimal  `gorm:"type:decimal(20,4);not null" json:"monto"`
	CreatedAt            time.Time        `gorm:"autoCreateTime" json:"created_at"`
}

func (l *CashflowLiquidacion) BeforeUpdate(tx *gorm.DB) error {
	return errors.New("immutable ledger: cashflow_liquidacions cannot be updated")
}

func (p *CashflowPago) BeforeUpdate(tx *gorm.DB) error {
	return errors.New("immutable ledger: cashflow_pagos cannot be updated")
}

func (r *CashflowRechazo) BeforeUpdate(tx *gorm.DB) error {
	return errors.New("immutable ledger: cashflow_rechazos cannot be updated")
}

func (t *CashflowTraspaso) BeforeUpdate(tx *gorm.DB) error {
	return errors.New("immutable ledger: cashflow_traspasos cannot be updated")
}
