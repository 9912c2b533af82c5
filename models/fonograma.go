package models

import (
	"context"
	"fmt"
	"time"

	"github.com/javiertrombetta/capif-back-sub001/config"
	"github.com/javiertrombetta/capif-back-sub001/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Fonograma struct {
	ID     int             `gorm:"primary_key" json:"id"`
	Titulo string          `gorm:"size:255;not null" json:"titulo"`
	Isrc   string          `gorm:"size:15;uniqueIndex;not null" json:"isrc"`
	Estado FonogramaEstado `gorm:"type:enum('ACTIVO','DADO_DE_BAJA');not null;default:'ACTIVO'" json:"estado"`
	// Derived columns. Never written directly: only the Recomputar*
	// functions below may touch them, inside the mutating transaction.
	PorcentajeTitularidadTotal decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"porcentaje_titularidad_total"`
	CantidadConflictosActivos  int             `gorm:"not null;default:0" json:"cantidad_conflictos_activos"`
	CreatedAt                  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func fonogramaCacheKey(id int) string {
	return fmt.Sprintf("fonograma:%d", id)
}

// GetFonogramaById reads through the redis cache. The cache is
// invalidated whenever a derived column is recomputed.
func GetFonogramaById(ctx context.Context, id int) (*Fonograma, error) {
	var cached Fonograma
	found, err := config.GetRedisObject(fonogramaCacheKey(id), &cached)
	if err != nil {
		return nil, err
	}
	if found {
		return &cached, nil
	}

	result, err := utils.FetchModel[Fonograma](ctx, id)
	if err != nil {
		return nil, err
	}
	if err := config.SetRedisObject(fonogramaCacheKey(id), result, 10*time.Minute); err != nil {
		return nil, err
	}
	return result, nil
}

// RecomputarTitularidad sets the fonograma's aggregate ownership to the
// flat sum of all current participaciones, regardless of time overlap.
// Time-aware checking is available separately (ExcesoTitularidadEnVigencia);
// the stored aggregate keeps flat-sum semantics for compatibility.
func RecomputarTitularidad(tx *gorm.DB, fonogramaId int) error {
	var total decimal.Decimal
	if err := tx.Model(&FonogramaParticipacion{}).
		Where("fonograma_id = ?", fonogramaId).
		Select("COALESCE(SUM(porcentaje), 0)").
		Scan(&total).Error; err != nil {
		return err
	}

	if err := tx.Model(&Fonograma{}).
		Where("id = ?", fonogramaId).
		Update("porcentaje_titularidad_total", total).Error; err != nil {
		return err
	}
	return config.DeleteRedisKey(fonogramaCacheKey(fonogramaId))
}

// RecomputarConflictosActivos sets the fonograma's active-conflict count
// to the number of its conflictos without a closing date.
func RecomputarConflictosActivos(tx *gorm.DB, fonogramaId int) error {
	var count int64
	if err := tx.Model(&Conflicto{}).
		Where("fonograma_id = ? AND fecha_fin IS NULL", fonogramaId).
		Count(&count).Error; err != nil {
		return err
	}

	if err := tx.Model(&Fonograma{}).
		Where("id = ?", fonogramaId).
		Update("cantidad_conflictos_activos", count).Error; err != nil {
		return err
	}
	return config.DeleteRedisKey(fonogramaCacheKey(fonogramaId))
}
