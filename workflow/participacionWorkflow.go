package workflow

import (
	"context"
	"time"

	"github.com/javiertrombetta/capif-back-sub001/config"
	"github.com/javiertrombetta/capif-back-sub001/models"
	"github.com/javiertrombetta/capif-back-sub001/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RegistrarParticipacion records a new ownership share and recomputes
// the fonograma's aggregate in the same transaction. Registration never
// rejects an over-100 window (flat-sum compatibility); the time-aware
// exceso is logged so bulk-upload callers can surface it.
func RegistrarParticipacion(ctx context.Context, input *models.NewFonogramaParticipacion) (*models.FonogramaParticipacion, error) {
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

	participacion := models.FonogramaParticipacion{
		FonogramaId:  input.FonogramaId,
		ProductoraId: input.ProductoraId,
		Porcentaje:   input.Porcentaje,
		FechaInicio:  input.FechaInicio,
		FechaHasta:   input.FechaHasta,
		CreatedBy:    usuarioIdOrZero(ctx),
	}

	err = runPosting(ctx, FonogramaLockScope(input.FonogramaId), func(tx *gorm.DB) error {
		exceso, err := models.ExcesoTitularidadEnVigencia(tx, input.FonogramaId, input.FechaInicio, input.FechaHasta, participacion.Vigencia())
		if err != nil {
			return err
		}
		if exceso.GreaterThan(decimal.Zero) {
			logger.WithFields(logrus.Fields{
				"module":       "participacionWorkflow.go",
				"fonogramaId":  input.FonogramaId,
				"productoraId": input.ProductoraId,
				"exceso":       exceso.String(),
			}).Warn("participacion pushes instantaneous titularidad above 100")
		}

		if err := tx.Create(&participacion).Error; err != nil {
			return err
		}
		return models.RecomputarTitularidad(tx, input.FonogramaId)
	})
	if err != nil {
		config.LogError(logger, "participacionWorkflow.go", "RegistrarParticipacion", "posting", input, err)
		return nil, err
	}
	return &participacion, nil
}

// EditFonogramaParticipacion carries partial changes: nil fields stay
// untouched; SinFechaHasta clears the end date (open-ended again).
type EditFonogramaParticipacion struct {
	Porcentaje    *decimal.Decimal `json:"porcentaje"`
	FechaInicio   *time.Time       `json:"fecha_inicio"`
	FechaHasta    *time.Time       `json:"fecha_hasta"`
	SinFechaHasta bool             `json:"sin_fecha_hasta"`
}

func EditarParticipacion(ctx context.Context, id int, changes *EditFonogramaParticipacion) (*models.FonogramaParticipacion, error) {
	logger := config.GetLogger()

	participacion, err := utils.FetchModel[models.FonogramaParticipacion](ctx, id)
	if err != nil {
		return nil, err
	}

	merged := models.NewFonogramaParticipacion{
		FonogramaId:  participacion.FonogramaId,
		ProductoraId: participacion.ProductoraId,
		Porcentaje:   participacion.Porcentaje,
		FechaInicio:  participacion.FechaInicio,
		FechaHasta:   participacion.FechaHasta,
	}
	if changes.Porcentaje != nil {
		merged.Porcentaje = *changes.Porcentaje
	}
	if changes.FechaInicio != nil {
		merged.FechaInicio = *changes.FechaInicio
	}
	if changes.SinFechaHasta {
		merged.FechaHasta = nil
	} else if changes.FechaHasta != nil {
		merged.FechaHasta = changes.FechaHasta
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	err = runPosting(ctx, FonogramaLockScope(participacion.FonogramaId), func(tx *gorm.DB) error {
		if err := tx.Model(&models.FonogramaParticipacion{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"porcentaje":   merged.Porcentaje,
				"fecha_inicio": merged.FechaInicio,
				"fecha_hasta":  merged.FechaHasta,
			}).Error; err != nil {
			return err
		}
		return models.RecomputarTitularidad(tx, participacion.FonogramaId)
	})
	if err != nil {
		config.LogError(logger, "participacionWorkflow.go", "EditarParticipacion", "posting", id, err)
		return nil, err
	}

	participacion.Porcentaje = merged.Porcentaje
	participacion.FechaInicio = merged.FechaInicio
	participacion.FechaHasta = merged.FechaHasta
	return participacion, nil
}

func EliminarParticipacion(ctx context.Context, id int) error {
	logger := config.GetLogger()

	participacion, err := utils.FetchModel[models.FonogramaParticipacion](ctx, id)
	if err != nil {
		return err
	}

	err = runPosting(ctx, FonogramaLockScope(participacion.FonogramaId), func(tx *gorm.DB) error {
		if err := tx.Delete(&models.FonogramaParticipacion{}, id).Error; err != nil {
			return err
		}
		return models.RecomputarTitularidad(tx, participacion.FonogramaId)
	})
	if err != nil {
		config.LogError(logger, "participacionWorkflow.go", "EliminarParticipacion", "posting", id, err)
	}
	return err
}
