package models

import (
	"time"

	"github.com/javiertrombetta/capif-back-sub001/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// FonogramaParticipacion is one productora's claimed share of a
// fonograma over the half-open interval [FechaInicio, FechaHasta).
// FechaHasta == nil means open-ended.
type FonogramaParticipacion struct {
	ID           int             `gorm:"primary_key" json:"id"`
	FonogramaId  int             `gorm:"index;not null;index:idx_fp_fono_fecha,priority:1" json:"fonograma_id"`
	ProductoraId int             `gorm:"index;not null" json:"productora_id"`
	Porcentaje   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"porcentaje"`
	FechaInicio  time.Time       `gorm:"not null;index:idx_fp_fono_fecha,priority:2" json:"fecha_inicio"`
	FechaHasta   *time.Time      `json:"fecha_hasta"`
	CreatedBy    int             `gorm:"index" json:"created_by"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewFonogramaParticipacion struct {
	FonogramaId  int             `json:"fonograma_id" validate:"required,gt=0"`
	ProductoraId int             `json:"productora_id" validate:"required,gt=0"`
	Porcentaje   decimal.Decimal `json:"porcentaje" validate:"required"`
	FechaInicio  time.Time       `json:"fecha_inicio" validate:"required"`
	FechaHasta   *time.Time      `json:"fecha_hasta"`
}

var cien = decimal.NewFromInt(100)

// validate input for both create & update. (id = 0 for create)
func (input *NewFonogramaParticipacion) Validate() error {
	if err := utils.ValidateInput(input); err != nil {
		return err
	}
	if !input.Porcentaje.IsPositive() || input.Porcentaje.GreaterThan(cien) {
		return &utils.ValidationError{Field: "porcentaje", Reason: "must be in (0, 100]"}
	}
	if input.FechaHasta != nil && !input.FechaInicio.Before(*input.FechaHasta) {
		return &utils.ValidationError{Field: "fecha_hasta", Reason: "must be after fecha_inicio"}
	}
	return nil
}

// Vigencia returns the participación as a weighted interval for the
// sweep-line utility.
func (p *FonogramaParticipacion) Vigencia() VigenciaIntervalo {
	return VigenciaIntervalo{Desde: p.FechaInicio, Hasta: p.FechaHasta, Peso: p.Porcentaje}
}

// CubrePeriodo reports whether the participación is active over the
// whole [desde, hasta] period.
func (p *FonogramaParticipacion) CubrePeriodo(desde, hasta time.Time) bool {
	if p.FechaInicio.After(desde) {
		return false
	}
	if p.FechaHasta != nil && !p.FechaHasta.After(hasta) {
		return false
	}
	return true
}

// SolapaPeriodo reports whether the participación overlaps any part of
// [desde, hasta].
func (p *FonogramaParticipacion) SolapaPeriodo(desde, hasta time.Time) bool {
	if p.FechaInicio.After(hasta) {
		return false
	}
	if p.FechaHasta != nil && !p.FechaHasta.After(desde) {
		return false
	}
	return true
}

func LoadParticipaciones(tx *gorm.DB, fonogramaId int) ([]*FonogramaParticipacion, error) {
	var participaciones []*FonogramaParticipacion
	if err := tx.Where("fonograma_id = ?", fonogramaId).
		Order("fecha_inicio, id").
		Find(&participaciones).Error; err != nil {
		return nil, err
	}
	return participaciones, nil
}

// ExcesoTitularidadEnVigencia runs the time-aware check over the given
// window against all current participaciones of the fonograma, plus an
// optional extra interval (a candidate share not yet written). It
// returns how far above 100 the instantaneous sum goes (zero when the
// window never exceeds 100). Callers use it for conflict messaging; the
// stored aggregate intentionally keeps flat-sum semantics.
func ExcesoTitularidadEnVigencia(tx *gorm.DB, fonogramaId int, desde time.Time, hasta *time.Time, extra ...VigenciaIntervalo) (decimal.Decimal, error) {
	participaciones, err := LoadParticipaciones(tx, fonogramaId)
	if err != nil {
		return decimal.Zero, err
	}

	intervalos := make([]VigenciaIntervalo, 0, len(participaciones)+len(extra))
	for _, p := range participaciones {
		intervalos = append(intervalos, p.Vigencia())
	}
	intervalos = append(intervalos, extra...)

	max := MaxWeightInRange(intervalos, desde, hasta)
	if max.LessThanOrEqual(cien) {
		return decimal.Zero, nil
	}
	return max.Sub(cien), nil
}
