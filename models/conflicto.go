package models

import (
	"time"

	"github.com/javiertrombetta/capif-back-sub001/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	diasPrimeraInstancia = 15
	diasPrimeraProrroga  = 22 // 15 + 7
	diasSegundaInstancia = 60
	diasSegundaProrroga  = 90 // 60 + 30
)

// Conflicto is a formal dispute over a fonograma's ownership for a
// declared period and percentage, with statutory deadlines.
type Conflicto struct {
	ID                   int             `gorm:"primary_key" json:"id"`
	FonogramaId          int             `gorm:"index;not null;index:idx_conf_fono_fin,priority:1" json:"fonograma_id"`
	ProductoraId         int             `gorm:"index;not null" json:"productora_id"`
	Estado               ConflictoEstado `gorm:"type:enum('PENDIENTE_CAPIF','PRIMERA_INSTANCIA','PRIMERA_PRORROGA','SEGUNDA_INSTANCIA','SEGUNDA_PRORROGA','VENCIDO','CERRADO');not null;default:'PENDIENTE_CAPIF'" json:"estado"`
	PorcentajeDeclarado  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"porcentaje_declarado"`
	FechaPeriodoDesde    time.Time       `gorm:"not null" json:"fecha_periodo_desde"`
	FechaPeriodoHasta    time.Time       `gorm:"not null" json:"fecha_periodo_hasta"`
	FechaInicio          time.Time       `gorm:"not null" json:"fecha_inicio"`
	FechaSegundaInstancia *time.Time     `json:"fecha_segunda_instancia"`
	FechaFin             *time.Time      `gorm:"index:idx_conf_fono_fin,priority:2" json:"fecha_fin"`
	Partes               []ConflictoParte `gorm:"foreignKey:ConflictoId" json:"partes"`
	CreatedBy            int             `gorm:"index" json:"created_by"`
	CreatedAt            time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// Vencimiento computes the statutory deadline for the conflicto's
// current state. Pure function of (Estado, FechaInicio,
// FechaSegundaInstancia); nil when the state carries no deadline or the
// second instance has not started yet.
func (c *Conflicto) Vencimiento() *time.Time {
	return VencimientoConflicto(c.Estado, c.FechaInicio, c.FechaSegundaInstancia)
}

func VencimientoConflicto(estado ConflictoEstado, fechaInicio time.Time, fechaSegundaInstancia *time.Time) *time.Time {
	var d time.Time
	switch estado {
	case ConflictoEstadoPrimeraInstancia:
		d = fechaInicio.AddDate(0, 0, diasPrimeraInstancia)
	case ConflictoEstadoPrimeraProrroga:
		d = fechaInicio.AddDate(0, 0, diasPrimeraProrroga)
	case ConflictoEstadoSegundaInstancia:
		if fechaSegundaInstancia == nil {
			return nil
		}
		d = fechaSegundaInstancia.AddDate(0, 0, diasSegundaInstancia)
	case ConflictoEstadoSegundaProrroga:
		if fechaSegundaInstancia == nil {
			return nil
		}
		d = fechaSegundaInstancia.AddDate(0, 0, diasSegundaProrroga)
	default:
		return nil
	}
	return &d
}

// EstaVencido is true iff the deadline exists and now is past it.
func (c *Conflicto) EstaVencido(now time.Time) bool {
	vencimiento := c.Vencimiento()
	return vencimiento != nil && now.After(*vencimiento)
}

// EstadoEfectivo reports VENCIDO for a conflicto whose deadline has
// passed without a transition. VENCIDO is never stored.
func (c *Conflicto) EstadoEfectivo(now time.Time) ConflictoEstado {
	if c.Estado.EsTerminal() {
		return c.Estado
	}
	if c.EstaVencido(now) {
		return ConflictoEstadoVencido
	}
	return c.Estado
}

// siguienteEstado is the linear instance progression. CERRADO is handled
// separately (reachable from any non-terminal state).
var siguienteEstado = map[ConflictoEstado]ConflictoEstado{
	ConflictoEstadoPendienteCapif:   ConflictoEstadoPrimeraInstancia,
	ConflictoEstadoPrimeraInstancia: ConflictoEstadoPrimeraProrroga,
	ConflictoEstadoPrimeraProrroga:  ConflictoEstadoSegundaInstancia,
	ConflictoEstadoSegundaInstancia: ConflictoEstadoSegundaProrroga,
}

// ValidarTransicion checks a state transition request against the
// machine. VENCIDO is not a valid target (it is computed, not stored).
func (c *Conflicto) ValidarTransicion(destino ConflictoEstado) error {
	if err := destino.Validate(); err != nil {
		return &utils.ValidationError{Field: "estado", Reason: err.Error()}
	}
	if c.Estado.EsTerminal() {
		return &utils.ConflictStateError{From: string(c.Estado), To: string(destino)}
	}
	if destino == ConflictoEstadoCerrado {
		return nil
	}
	if siguienteEstado[c.Estado] != destino {
		return &utils.ConflictStateError{From: string(c.Estado), To: string(destino)}
	}
	return nil
}

// FetchConflictoForUpdate loads a conflicto under FOR UPDATE. State
// transitions must re-read and re-validate under this lock: the estado
// seen before the posting lock was taken may already be stale.
func FetchConflictoForUpdate(tx *gorm.DB, conflictoId int) (*Conflicto, error) {
	var conflicto Conflicto
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&conflicto, conflictoId).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &utils.NotFoundError{Resource: "conflictos", Id: conflictoId}
		}
		return nil, err
	}
	return &conflicto, nil
}
