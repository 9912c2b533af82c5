package workflow

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/javiertrombetta/capif-back-sub001/config"
	"github.com/javiertrombetta/capif-back-sub001/models"
	"github.com/javiertrombetta/capif-back-sub001/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// appendEntry is the single write path into a productora's ledger: it
// locks the cashflow row, snapshots the resulting balance on the entry,
// and updates the running balance in the same transaction.
func appendEntry(ctx context.Context, tx *gorm.DB, productoraId int, entry *models.CashflowMaestro) (*models.CashflowMaestro, error) {
	cashflow, err := models.FetchCashflowForUpdate(tx, productoraId)
	if err != nil {
		return nil, err
	}

	entry.CashflowId = cashflow.ID
	entry.SaldoResultante = cashflow.Saldo.Add(entry.Monto)
	entry.CreatedBy = usuarioIdOrZero(ctx)
	entry.CorrelationId = correlationIdOrNew(ctx)

	if err := tx.Create(entry).Error; err != nil {
		return nil, utils.MapDuplicateKey(err, "referencia", utils.DereferencePtr(entry.Referencia))
	}

	if err := tx.Model(&models.Cashflow{}).
		Where("id = ?", cashflow.ID).
		Update("saldo", entry.SaldoResultante).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

type NewLiquidacion struct {
	ProductoraId      int             `json:"productora_id" validate:"required,gt=0"`
	FonogramaId       int             `json:"fonograma_id" validate:"required,gt=0"`
	Isrc              string          `json:"isrc" validate:"required"`
	Monto             decimal.Decimal `json:"monto" validate:"required"`
	PeriodoRetroDesde *time.Time      `json:"periodo_retro_desde"`
	PeriodoRetroHasta *time.Time      `json:"periodo_retro_hasta"`
	Concepto          string          `json:"concepto"`
	Referencia        *string         `json:"referencia"`
}

type NewLoteLiquidaciones struct {
	Referencia string           `json:"referencia" validate:"required"`
	Items      []NewLiquidacion `json:"items" validate:"required,min=1,dive"`
}

// RegistrarLoteLiquidaciones appends one liquidation accrual per item.
// The whole batch commits or rolls back as one unit; re-submitting the
// same batch reference is a safe no-op (returns nil entries).
func RegistrarLoteLiquidaciones(ctx context.Context, input *NewLoteLiquidaciones) ([]*models.CashflowMaestro, error) {
	logger := config.GetLogger()

	if err := utils.ValidateInput(input); err != nil {
		return nil, err
	}
	productoraIds := make([]int, 0, len(input.Items))
	for _, item := range input.Items {
		if err := utils.ValidateResourceId[models.Productora](ctx, item.ProductoraId); err != nil {
			return nil, err
		}
		if err := utils.ValidateResourceId[models.Fonograma](ctx, item.FonogramaId); err != nil {
			return nil, err
		}
		productoraIds = append(productoraIds, item.ProductoraId)
	}

	scopes := cashflowScopes(productoraIds)
	releases, err := obtainProductoraLocks(ctx, productoraIds, "RegistrarLoteLiquidaciones")
	if err != nil {
		return nil, err
	}
	defer releases()

	var entries []*models.CashflowMaestro
	err = runPostingScopes(ctx, scopes, func(tx *gorm.DB) error {
		skip, err := BeginIdempotency(tx, "RegistrarLoteLiquidaciones", input.Referencia)
		if err != nil {
			return err
		}
		if skip {
			entries = nil
			return nil
		}

		for _, item := range input.Items {
			detalle := models.CashflowLiquidacion{
				FonogramaId:       item.FonogramaId,
				Isrc:              item.Isrc,
				Monto:             item.Monto,
				PeriodoRetroDesde: item.PeriodoRetroDesde,
				PeriodoRetroHasta: item.PeriodoRetroHasta,
				Concepto:          item.Concepto,
			}
			if err := tx.Create(&detalle).Error; err != nil {
				return err
			}
			entry, err := appendEntry(ctx, tx, item.ProductoraId, &models.CashflowMaestro{
				Tipo:          models.CashflowTipoLiquidacion,
				LiquidacionId: &detalle.ID,
				Monto:         item.Monto,
				Referencia:    item.Referencia,
			})
			if err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		return MarkIdempotencySucceeded(tx, "RegistrarLoteLiquidaciones", input.Referencia)
	})
	if err != nil {
		if !errors.Is(err, ErrIdempotencyInProgress) {
			if markErr := MarkIdempotencyFailed(config.GetDB().WithContext(ctx), "RegistrarLoteLiquidaciones", input.Referencia, err); markErr != nil {
				config.LogError(logger, "cashflowWorkflow.go", "RegistrarLoteLiquidaciones", "mark idempotency failed", input.Referencia, markErr)
			}
		}
		config.LogError(logger, "cashflowWorkflow.go", "RegistrarLoteLiquidaciones", "posting", input.Referencia, err)
		return nil, err
	}
	return entries, nil
}

type NewPago struct {
	ProductoraId   int             `json:"productora_id" validate:"required,gt=0"`
	Monto          decimal.Decimal `json:"monto" validate:"required"`
	MontoRetencion decimal.Decimal `json:"monto_retencion"`
	// NumeroLote nil opens a new lote under the sequence lock; non-nil
	// appends into the caller-resolved current lote.
	NumeroLote *int    `json:"numero_lote"`
	Concepto   string  `json:"concepto"`
	Referencia *string `json:"referencia"`
}

// RegistrarPago appends a payout entry. Lote and orden numbers come
// from locked sequence rows so concurrent payments can never collide on
// a (lote, orden) pair.
func RegistrarPago(ctx context.Context, input *NewPago) (*models.CashflowMaestro, error) {
	logger := config.GetLogger()

	if err := utils.ValidateInput(input); err != nil {
		return nil, err
	}
	if input.Monto.IsPositive() {
		return nil, &utils.ValidationError{Field: "monto", Reason: "must be <= 0"}
	}
	if input.MontoRetencion.IsNegative() {
		return nil, &utils.ValidationError{Field: "monto_retencion", Reason: "must be >= 0"}
	}
	if err := utils.ValidateResourceId[models.Productora](ctx, input.ProductoraId); err != nil {
		return nil, err
	}

	release, err := utils.ProductoraLock(ctx, input.ProductoraId, "cashflow", "cashflowWorkflow.go", "RegistrarPago")
	if err != nil {
		return nil, err
	}
	defer release()

	var entry *models.CashflowMaestro
	err = runPosting(ctx, ProductoraLockScope(input.ProductoraId), func(tx *gorm.DB) error {
		var lote *models.CashflowLote
		var err error
		if input.NumeroLote == nil {
			lote, err = models.AbrirLote(tx)
		} else {
			lote, err = models.FetchLoteForUpdate(tx, *input.NumeroLote)
		}
		if err != nil {
			return err
		}
		orden, err := models.SiguienteOrdenEnLote(tx, lote)
		if err != nil {
			return err
		}

		detalle := models.CashflowPago{
			Monto:          input.Monto,
			MontoRetencion: input.MontoRetencion,
			Concepto:       input.Concepto,
		}
		if err := tx.Create(&detalle).Error; err != nil {
			return err
		}

		entry, err = appendEntry(ctx, tx, input.ProductoraId, &models.CashflowMaestro{
			Tipo:        models.CashflowTipoPago,
			PagoId:      &detalle.ID,
			Monto:       input.Monto,
			NumeroLote:  lote.Numero,
			OrdenEnLote: orden,
			Referencia:  input.Referencia,
		})
		return err
	})
	if err != nil {
		config.LogError(logger, "cashflowWorkflow.go", "RegistrarPago", "posting", input, err)
		return nil, err
	}
	return entry, nil
}

type NewRechazo struct {
	PagoId     int             `json:"pago_id" validate:"required,gt=0"`
	Monto      decimal.Decimal `json:"monto" validate:"required"`
	Motivo     string          `json:"motivo"`
	Referencia *string         `json:"referencia"`
}

// RegistrarRechazo reverses part or all of a prior pago with a new,
// offsetting entry; the pago itself is never edited.
func RegistrarRechazo(ctx context.Context, input *NewRechazo) (*models.CashflowMaestro, error) {
	logger := config.GetLogger()

	if err := utils.ValidateInput(input); err != nil {
		return nil, err
	}
	if input.Monto.IsNegative() {
		return nil, &utils.ValidationError{Field: "monto", Reason: "must be >= 0"}
	}

	pago, err := utils.FetchModel[models.CashflowPago](ctx, input.PagoId)
	if err != nil {
		return nil, err
	}
	productoraId, err := productoraOfPago(ctx, pago.ID)
	if err != nil {
		return nil, err
	}

	release, err := utils.ProductoraLock(ctx, productoraId, "cashflow", "cashflowWorkflow.go", "RegistrarRechazo")
	if err != nil {
		return nil, err
	}
	defer release()

	var entry *models.CashflowMaestro
	err = runPosting(ctx, ProductoraLockScope(productoraId), func(tx *gorm.DB) error {
		var rechazado decimal.Decimal
		if err := tx.Model(&models.CashflowRechazo{}).
			Where("pago_id = ?", pago.ID).
			Select("COALESCE(SUM(monto), 0)").
			Scan(&rechazado).Error; err != nil {
			return err
		}
		restante := pago.Monto.Abs().Sub(rechazado)
		if input.Monto.GreaterThan(restante) {
			return &utils.ValidationError{Field: "monto", Reason: "exceeds the pago's un-reversed remainder"}
		}

		detalle := models.CashflowRechazo{
			PagoId: pago.ID,
			Monto:  input.Monto,
			Motivo: input.Motivo,
		}
		if err := tx.Create(&detalle).Error; err != nil {
			return err
		}

		entry, err = appendEntry(ctx, tx, productoraId, &models.CashflowMaestro{
			Tipo:       models.CashflowTipoRechazo,
			RechazoId:  &detalle.ID,
			Monto:      input.Monto,
			Referencia: input.Referencia,
		})
		return err
	})
	if err != nil {
		config.LogError(logger, "cashflowWorkflow.go", "RegistrarRechazo", "posting", input, err)
		return nil, err
	}
	return entry, nil
}

type NewTraspaso struct {
	ProductoraOrigenId  int                    `json:"productora_origen_id" validate:"required,gt=0"`
	ProductoraDestinoId int                    `json:"productora_destino_id" validate:"required,gt=0"`
	Alcance             models.TraspasoAlcance `json:"alcance" validate:"required"`
	Isrc                *string                `json:"isrc"`
	Porcentaje          *decimal.Decimal       `json:"porcentaje"`
	Monto               decimal.Decimal        `json:"monto" validate:"required"`
	Referencia          *string                `json:"referencia"`
}

func (input *NewTraspaso) Validate() error {
	if err := utils.ValidateInput(input); err != nil {
		return err
	}
	if err := input.Alcance.Validate(); err != nil {
		return &utils.ValidationError{Field: "alcance", Reason: err.Error()}
	}
	if !input.Monto.IsPositive() {
		return &utils.ValidationError{Field: "monto", Reason: "must be positive"}
	}
	if input.ProductoraOrigenId == input.ProductoraDestinoId {
		return &utils.ValidationError{Field: "productora_destino_id", Reason: "must differ from origen"}
	}
	if input.Alcance == models.TraspasoAlcanceFonograma {
		if input.Isrc == nil || *input.Isrc == "" {
			return &utils.ValidationError{Field: "isrc", Reason: "required for fonograma scope"}
		}
		if input.Porcentaje == nil || !input.Porcentaje.IsPositive() || input.Porcentaje.GreaterThan(decimal.NewFromInt(100)) {
			return &utils.ValidationError{Field: "porcentaje", Reason: "must be in (0, 100] for fonograma scope"}
		}
	}
	return nil
}

// RegistrarTraspaso moves value between two productoras: one detail row,
// two maestro entries (debit origen, credit destino) in one transaction.
// Holder-wide transfers are overdraft-protected.
func RegistrarTraspaso(ctx context.Context, input *NewTraspaso) (origen *models.CashflowMaestro, destino *models.CashflowMaestro, err error) {
	logger := config.GetLogger()

	if err := input.Validate(); err != nil {
		return nil, nil, err
	}
	if err := utils.ValidateResourceId[models.Productora](ctx, input.ProductoraOrigenId); err != nil {
		return nil, nil, err
	}
	if err := utils.ValidateResourceId[models.Productora](ctx, input.ProductoraDestinoId); err != nil {
		return nil, nil, err
	}

	ids := []int{input.ProductoraOrigenId, input.ProductoraDestinoId}
	releases, err := obtainProductoraLocks(ctx, ids, "RegistrarTraspaso")
	if err != nil {
		return nil, nil, err
	}
	defer releases()

	err = runPostingScopes(ctx, cashflowScopes(ids), func(tx *gorm.DB) error {
		if input.Alcance == models.TraspasoAlcanceGeneral {
			cashflowOrigen, err := models.FetchCashflowForUpdate(tx, input.ProductoraOrigenId)
			if err != nil {
				return err
			}
			if cashflowOrigen.Saldo.LessThan(input.Monto) {
				return &utils.InsufficientBalanceError{
					ProductoraId: input.ProductoraOrigenId,
					Saldo:        cashflowOrigen.Saldo,
					Monto:        input.Monto,
				}
			}
		}

		detalle := models.CashflowTraspaso{
			ProductoraOrigenId:  input.ProductoraOrigenId,
			ProductoraDestinoId: input.ProductoraDestinoId,
			Alcance:             input.Alcance,
			Isrc:                input.Isrc,
			Porcentaje:          input.Porcentaje,
			Monto:               input.Monto,
		}
		if err := tx.Create(&detalle).Error; err != nil {
			return err
		}

		origen, err = appendEntry(ctx, tx, input.ProductoraOrigenId, &models.CashflowMaestro{
			Tipo:       models.CashflowTipoTraspaso,
			TraspasoId: &detalle.ID,
			Monto:      input.Monto.Neg(),
			Referencia: input.Referencia,
		})
		if err != nil {
			return err
		}
		destino, err = appendEntry(ctx, tx, input.ProductoraDestinoId, &models.CashflowMaestro{
			Tipo:       models.CashflowTipoTraspaso,
			TraspasoId: &detalle.ID,
			Monto:      input.Monto,
		})
		return err
	})
	if err != nil {
		config.LogError(logger, "cashflowWorkflow.go", "RegistrarTraspaso", "posting", input, err)
		return nil, nil, err
	}
	return origen, destino, nil
}

// productoraOfPago resolves the owning productora through the maestro
// entry that posted the pago.
func productoraOfPago(ctx context.Context, pagoId int) (int, error) {
	db := config.GetDB()
	var productoraId int
	err := db.WithContext(ctx).Model(&models.CashflowMaestro{}).
		Joins("JOIN cashflows ON cashflows.id = cashflow_maestros.cashflow_id").
		Where("cashflow_maestros.pago_id = ?", pagoId).
		Select("cashflows.productora_id").
		Scan(&productoraId).Error
	if err != nil {
		return 0, err
	}
	if productoraId == 0 {
		return 0, &utils.NotFoundError{Resource: "cashflow_maestros", Id: pagoId}
	}
	return productoraId, nil
}

func cashflowScopes(productoraIds []int) []string {
	unique := utils.UniqueSlice(productoraIds)
	sort.Ints(unique)
	scopes := make([]string, 0, len(unique))
	for _, id := range unique {
		scopes = append(scopes, ProductoraLockScope(id))
	}
	return scopes
}

// obtainProductoraLocks takes the cross-instance redis locks for every
// productora involved, in ascending id order, and returns one combined
// release func.
func obtainProductoraLocks(ctx context.Context, productoraIds []int, functionName string) (func(), error) {
	unique := utils.UniqueSlice(productoraIds)
	sort.Ints(unique)

	releases := make([]func(), 0, len(unique))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	for _, id := range unique {
		release, err := utils.ProductoraLock(ctx, id, "cashflow", "cashflowWorkflow.go", functionName)
		if err != nil {
			releaseAll()
			return nil, err
		}
		releases = append(releases, release)
	}
	return releaseAll, nil
}
