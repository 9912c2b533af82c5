package workflow

import (
	"context"
	"time"

	"github.com/javiertrombetta/capif-back-sub001/config"
	"github.com/javiertrombetta/capif-back-sub001/models"
	"github.com/javiertrombetta/capif-back-sub001/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type NewConflicto struct {
	FonogramaId         int             `json:"fonograma_id" validate:"required,gt=0"`
	ProductoraId        int             `json:"productora_id" validate:"required,gt=0"`
	PorcentajeDeclarado decimal.Decimal `json:"porcentaje_declarado" validate:"required"`
	FechaPeriodoDesde   time.Time       `json:"fecha_periodo_desde" validate:"required"`
	FechaPeriodoHasta   time.Time       `json:"fecha_periodo_hasta" validate:"required"`
}

func (input *NewConflicto) Validate() error {
	if err := utils.ValidateInput(input); err != nil {
		return err
	}
	if !input.PorcentajeDeclarado.IsPositive() {
		return &utils.ValidationError{Field: "porcentaje_declarado", Reason: "must be positive"}
	}
	if input.FechaPeriodoHasta.Before(input.FechaPeriodoDesde) {
		return &utils.ValidationError{Field: "fecha_periodo_hasta", Reason: "must not precede fecha_periodo_desde"}
	}
	return nil
}

// AbrirConflicto opens a dispute over the fonograma's ownership for the
// declared period, creating one parte per implicated participación, and
// recomputes the fonograma's active-conflict count.
func AbrirConflicto(ctx context.Context, input *NewConflicto) (*models.Conflicto, error) {
	logger := config.GetLogger()

	if err := input.Validate(); err != nil {
		return nil, err
	}
	fonograma, err := models.GetFonogramaById(ctx, input.FonogramaId)
	if err != nil {
		return nil, err
	}
	if fonograma.Estado != models.FonogramaEstadoActivo {
		return nil, &utils.ValidationError{Field: "fonograma_id", Reason: "fonograma is dado de baja"}
	}
	if err := utils.ValidateResourceId[models.Productora](ctx, input.ProductoraId); err != nil {
		return nil, err
	}

	conflicto := models.Conflicto{
		FonogramaId:         input.FonogramaId,
		ProductoraId:        input.ProductoraId,
		Estado:              models.ConflictoEstadoPendienteCapif,
		PorcentajeDeclarado: input.PorcentajeDeclarado,
		FechaPeriodoDesde:   input.FechaPeriodoDesde,
		FechaPeriodoHasta:   input.FechaPeriodoHasta,
		FechaInicio:         time.Now().UTC(),
		CreatedBy:           usuarioIdOrZero(ctx),
	}

	err = runPosting(ctx, FonogramaLockScope(input.FonogramaId), func(tx *gorm.DB) error {
		participaciones, err := models.LoadParticipaciones(tx, input.FonogramaId)
		if err != nil {
			return err
		}

		implicadas := make([]*models.FonogramaParticipacion, 0, len(participaciones))
		for _, p := range participaciones {
			if p.SolapaPeriodo(input.FechaPeriodoDesde, input.FechaPeriodoHasta) {
				implicadas = append(implicadas, p)
			}
		}
		if len(implicadas) == 0 {
			return &utils.ValidationError{
				Field:  "fecha_periodo_desde",
				Reason: "no participacion is active for the declared period",
			}
		}

		if err := tx.Create(&conflicto).Error; err != nil {
			return err
		}
		for _, p := range implicadas {
			parte := models.ConflictoParte{
				ConflictoId:         conflicto.ID,
				ParticipacionId:     p.ID,
				Estado:              models.ConflictoParteEstadoPendiente,
				PorcentajeDeclarado: p.Porcentaje,
			}
			if err := tx.Create(&parte).Error; err != nil {
				return err
			}
			conflicto.Partes = append(conflicto.Partes, parte)
		}
		return models.RecomputarConflictosActivos(tx, input.FonogramaId)
	})
	if err != nil {
		config.LogError(logger, "conflictoWorkflow.go", "AbrirConflicto", "posting", input, err)
		return nil, err
	}
	return &conflicto, nil
}

// AvanzarEstadoConflicto moves a conflicto along the instance machine.
// Entering SEGUNDA_INSTANCIA stamps its start date; CERRADO stamps the
// closing date. A terminal conflicto cannot transition.
func AvanzarEstadoConflicto(ctx context.Context, conflictoId int, destino models.ConflictoEstado) (*models.Conflicto, error) {
	logger := config.GetLogger()

	conflicto, err := utils.FetchModel[models.Conflicto](ctx, conflictoId)
	if err != nil {
		return nil, err
	}
	// Fast fail; the authoritative check re-runs under the lock below.
	if err := conflicto.ValidarTransicion(destino); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	err = runPosting(ctx, FonogramaLockScope(conflicto.FonogramaId), func(tx *gorm.DB) error {
		// The estado may have moved (a concurrent close) between the
		// unlocked read above and here; re-read FOR UPDATE and re-validate.
		actual, err := models.FetchConflictoForUpdate(tx, conflictoId)
		if err != nil {
			return err
		}
		if err := actual.ValidarTransicion(destino); err != nil {
			return err
		}

		updates := map[string]interface{}{"estado": destino}
		if destino == models.ConflictoEstadoSegundaInstancia && actual.FechaSegundaInstancia == nil {
			updates["fecha_segunda_instancia"] = now
		}
		if destino == models.ConflictoEstadoCerrado {
			updates["fecha_fin"] = now
		}
		if err := tx.Model(&models.Conflicto{}).
			Where("id = ?", conflictoId).
			Updates(updates).Error; err != nil {
			return err
		}

		actual.Estado = destino
		if v, ok := updates["fecha_segunda_instancia"].(time.Time); ok {
			actual.FechaSegundaInstancia = &v
		}
		if v, ok := updates["fecha_fin"].(time.Time); ok {
			actual.FechaFin = &v
		}
		conflicto = actual
		return models.RecomputarConflictosActivos(tx, actual.FonogramaId)
	})
	if err != nil {
		config.LogError(logger, "conflictoWorkflow.go", "AvanzarEstadoConflicto", "posting", conflictoId, err)
		return nil, err
	}
	return conflicto, nil
}

// ResolverConflicto closes a conflicto from any non-terminal state.
func ResolverConflicto(ctx context.Context, conflictoId int) (*models.Conflicto, error) {
	return AvanzarEstadoConflicto(ctx, conflictoId, models.ConflictoEstadoCerrado)
}

// EliminarConflicto removes a conflicto with its partes and recomputes
// the fonograma's active-conflict count.
func EliminarConflicto(ctx context.Context, conflictoId int) error {
	logger := config.GetLogger()

	conflicto, err := utils.FetchModel[models.Conflicto](ctx, conflictoId)
	if err != nil {
		return err
	}

	err = runPosting(ctx, FonogramaLockScope(conflicto.FonogramaId), func(tx *gorm.DB) error {
		if err := tx.Where("conflicto_id = ?", conflictoId).
			Delete(&models.ConflictoParte{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Conflicto{}, conflictoId).Error; err != nil {
			return err
		}
		return models.RecomputarConflictosActivos(tx, conflicto.FonogramaId)
	})
	if err != nil {
		config.LogError(logger, "conflictoWorkflow.go", "EliminarConflicto", "posting", conflictoId, err)
	}
	return err
}

type NewDecisionParte struct {
	ConflictoParteId     int                         `json:"conflicto_parte_id" validate:"required,gt=0"`
	Estado               models.ConflictoParteEstado `json:"estado" validate:"required"`
	PorcentajeConfirmado *decimal.Decimal            `json:"porcentaje_confirmado"`
	DocumentosEntregados bool                        `json:"documentos_entregados"`
}

// RegistrarDecisionParte records one implicated share-holder's decision:
// the parte row moves to the new state and the decision is appended to
// the history. A parte never returns to PENDIENTE.
func RegistrarDecisionParte(ctx context.Context, input *NewDecisionParte) (*models.ConflictoParte, error) {
	logger := config.GetLogger()

	if err := utils.ValidateInput(input); err != nil {
		return nil, err
	}

	parte, err := utils.FetchModel[models.ConflictoParte](ctx, input.ConflictoParteId)
	if err != nil {
		return nil, err
	}
	conflicto, err := utils.FetchModel[models.Conflicto](ctx, parte.ConflictoId)
	if err != nil {
		return nil, err
	}
	// Fast fail; re-checked under the lock below.
	if conflicto.Estado.EsTerminal() {
		return nil, &utils.ConflictStateError{From: string(conflicto.Estado), To: string(conflicto.Estado)}
	}
	if err := parte.ValidarTransicion(input.Estado); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	err = runPosting(ctx, FonogramaLockScope(conflicto.FonogramaId), func(tx *gorm.DB) error {
		// A concurrent close may have landed since the unlocked read;
		// decisions on a terminal conflicto must not slip through.
		actual, err := models.FetchConflictoForUpdate(tx, parte.ConflictoId)
		if err != nil {
			return err
		}
		if actual.Estado.EsTerminal() {
			return &utils.ConflictStateError{From: string(actual.Estado), To: string(actual.Estado)}
		}

		if err := tx.Model(&models.ConflictoParte{}).
			Where("id = ?", parte.ID).
			Updates(map[string]interface{}{
				"estado":                input.Estado,
				"porcentaje_confirmado": input.PorcentajeConfirmado,
				"documentos_entregados": input.DocumentosEntregados,
				"fecha_respuesta":       now,
			}).Error; err != nil {
			return err
		}
		decision := models.ConflictoParteDecision{
			ConflictoParteId:     parte.ID,
			Estado:               input.Estado,
			PorcentajeConfirmado: input.PorcentajeConfirmado,
			DocumentosEntregados: input.DocumentosEntregados,
			RegistradoPor:        usuarioIdOrZero(ctx),
			CorrelationId:        correlationIdOrNew(ctx),
		}
		return tx.Create(&decision).Error
	})
	if err != nil {
		config.LogError(logger, "conflictoWorkflow.go", "RegistrarDecisionParte", "posting", input, err)
		return nil, err
	}

	parte.Estado = input.Estado
	parte.PorcentajeConfirmado = input.PorcentajeConfirmado
	parte.DocumentosEntregados = input.DocumentosEntregados
	parte.FechaRespuesta = &now
	return parte, nil
}
