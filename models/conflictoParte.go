package models

import (
	"time"

	"github.com/javiertrombetta/capif-back-sub001/utils"
	"github.com/shopspring/decimal"
)

// ConflictoParte is one implicated participación's stance inside a
// conflicto. The row always holds the latest state; every decision is
// also appended to ConflictoParteDecision, so the history is never
// rewritten.
type ConflictoParte struct {
	ID                   int                  `gorm:"primary_key" json:"id"`
	ConflictoId          int                  `gorm:"index;not null;uniqueIndex:idx_parte_conf_part,priority:1" json:"conflicto_id"`
	ParticipacionId      int                  `gorm:"index;not null;uniqueIndex:idx_parte_conf_part,priority:2" json:"participacion_id"`
	Estado               ConflictoParteEstado `gorm:"type:enum('PENDIENTE','RESPONDIDO','DESISTIDO','MODIFICADO','RETIRADO','ACEPTADO');not null;default:'PENDIENTE'" json:"estado"`
	PorcentajeDeclarado  decimal.Decimal      `gorm:"type:decimal(20,4);not null;default:0" json:"porcentaje_declarado"`
	PorcentajeConfirmado *decimal.Decimal     `gorm:"type:decimal(20,4)" json:"porcentaje_confirmado"`
	DocumentosEntregados bool                 `gorm:"not null;default:false" json:"documentos_entregados"`
	FechaRespuesta       *time.Time           `json:"fecha_respuesta"`
	CreatedAt            time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
}

// ConflictoParteDecision is the append-only decision history of one
// parte. Rows are only ever inserted.
type ConflictoParteDecision struct {
	ID                   int                  `gorm:"primary_key" json:"id"`
	ConflictoParteId     int                  `gorm:"index;not null" json:"conflicto_parte_id"`
	Estado               ConflictoParteEstado `gorm:"type:enum('PENDIENTE','RESPONDIDO','DESISTIDO','MODIFICADO','RETIRADO','ACEPTADO');not null" json:"estado"`
	PorcentajeConfirmado *decimal.Decimal     `gorm:"type:decimal(20,4)" json:"porcentaje_confirmado"`
	DocumentosEntregados bool                 `gorm:"not null;default:false" json:"documentos_entregados"`
	RegistradoPor        int                  `gorm:"index" json:"registrado_por"`
	CorrelationId        string               `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt            time.Time            `gorm:"autoCreateTime" json:"created_at"`
}

// ValidarTransicion enforces the monotonic parte machine: PENDIENTE may
// move to any responded state; once a parte has responded it may move
// between responded states but never back to PENDIENTE.
func (p *ConflictoParte) ValidarTransicion(destino ConflictoParteEstado) error {
	if err := destino.Validate(); err != nil {
		return &utils.ValidationError{Field: "estado", Reason: err.Error()}
	}
	if destino == ConflictoParteEstadoPendiente {
		return &utils.ConflictStateError{From: string(p.Estado), To: string(destino)}
	}
	return nil
}

// HaRespondido reports whether the parte has left PENDIENTE.
func (p *ConflictoParte) HaRespondido() bool {
	return p.Estado != ConflictoParteEstadoPendiente
}
