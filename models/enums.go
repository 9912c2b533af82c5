package models

import "errors"

type FonogramaEstado string

const (
	FonogramaEstadoActivo     FonogramaEstado = "ACTIVO"
	FonogramaEstadoDadoDeBaja FonogramaEstado = "DADO_DE_BAJA"
)

func (e FonogramaEstado) Validate() error {
	switch e {
	case FonogramaEstadoActivo, FonogramaEstadoDadoDeBaja:
		return nil
	}
	return errors.New("invalid fonograma estado")
}

type ConflictoEstado string

const (
	ConflictoEstadoPendienteCapif   ConflictoEstado = "PENDIENTE_CAPIF"
	ConflictoEstadoPrimeraInstancia ConflictoEstado = "PRIMERA_INSTANCIA"
	ConflictoEstadoPrimeraProrroga  ConflictoEstado = "PRIMERA_PRORROGA"
	ConflictoEstadoSegundaInstancia ConflictoEstado = "SEGUNDA_INSTANCIA"
	ConflictoEstadoSegundaProrroga  ConflictoEstado = "SEGUNDA_PRORROGA"
	// VENCIDO is never persisted: it is computed from the deadline.
	ConflictoEstadoVencido ConflictoEstado = "VENCIDO"
	ConflictoEstadoCerrado ConflictoEstado = "CERRADO"
)

func (e ConflictoEstado) Validate() error {
	switch e {
	case ConflictoEstadoPendienteCapif, ConflictoEstadoPrimeraInstancia,
		ConflictoEstadoPrimeraProrroga, ConflictoEstadoSegundaInstancia,
		ConflictoEstadoSegundaProrroga, ConflictoEstadoVencido, ConflictoEstadoCerrado:
		return nil
	}
	return errors.New("invalid conflicto estado")
}

func (e ConflictoEstado) EsTerminal() bool {
	return e == ConflictoEstadoCerrado || e == ConflictoEstadoVencido
}

type ConflictoParteEstado string

const (
	ConflictoParteEstadoPendiente  ConflictoParteEstado = "PENDIENTE"
	ConflictoParteEstadoRespondido ConflictoParteEstado = "RESPONDIDO"
	ConflictoParteEstadoDesistido  ConflictoParteEstado = "DESISTIDO"
	ConflictoParteEstadoModificado ConflictoParteEstado = "MODIFICADO"
	ConflictoParteEstadoRetirado   ConflictoParteEstado = "RETIRADO"
	ConflictoParteEstadoAceptado   ConflictoParteEstado = "ACEPTADO"
)

func (e ConflictoParteEstado) Validate() error {
	switch e {
	case ConflictoParteEstadoPendiente, ConflictoParteEstadoRespondido,
		ConflictoParteEstadoDesistido, ConflictoParteEstadoModificado,
		ConflictoParteEstadoRetirado, ConflictoParteEstadoAceptado:
		return nil
	}
	return errors.New("invalid conflicto parte estado")
}

type CashflowTipo string

const (
	CashflowTipoLiquidacion CashflowTipo = "LIQUIDACION"
	CashflowTipoPago        CashflowTipo = "PAGO"
	CashflowTipoRechazo     CashflowTipo = "RECHAZO"
	CashflowTipoTraspaso    CashflowTipo = "TRASPASO"
)

func (t CashflowTipo) Validate() error {
	switch t {
	case CashflowTipoLiquidacion, CashflowTipoPago, CashflowTipoRechazo, CashflowTipoTraspaso:
		return nil
	}
	return errors.New("invalid cashflow tipo")
}

// TraspasoAlcance: GENERAL moves free balance (overdraft-checked);
// FONOGRAMA moves accrued value scoped to one ISRC and a percentage.
type TraspasoAlcance string

const (
	TraspasoAlcanceGeneral   TraspasoAlcance = "GENERAL"
	TraspasoAlcanceFonograma TraspasoAlcance = "FONOGRAMA"
)

func (a TraspasoAlcance) Validate() error {
	switch a {
	case TraspasoAlcanceGeneral, TraspasoAlcanceFonograma:
		return nil
	}
	return errors.New("invalid traspaso alcance")
}

type IdempotencyStatus string

const (
	IdempotencyStatusStarted   IdempotencyStatus = "STARTED"
	IdempotencyStatusSucceeded IdempotencyStatus = "SUCCEEDED"
	IdempotencyStatusFailed    IdempotencyStatus = "FAILED"
)
