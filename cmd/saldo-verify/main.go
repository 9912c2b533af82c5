// saldo-verify recomputes every cashflow balance from its maestro
// entries and reports rows whose stored saldo drifted, plus lotes whose
// orden sequence has gaps or duplicates. Read-only.
//
// Usage:
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/saldo-verify
package main

import (
	"fmt"
	"os"

	"github.com/javiertrombetta/capif-back-sub001/config"
	"github.com/javiertrombetta/capif-back-sub001/models"
	"github.com/shopspring/decimal"
)

type saldoDrift struct {
	CashflowId   int
	ProductoraId int
	Saldo        decimal.Decimal
	Calculado    decimal.Decimal
}

type loteHole struct {
	NumeroLote int
	Entradas   int64
	MaxOrden   int
}

func main() {
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	var drifts []saldoDrift
	err := db.Raw(`
		SELECT
			c.id AS cashflow_id,
			c.productora_id,
			c.saldo,
			COALESCE(SUM(m.monto), 0) AS calculado
		FROM cashflows c
			LEFT JOIN cashflow_maestros m ON m.cashflow_id = c.id
		GROUP BY c.id, c.productora_id, c.saldo
		HAVING c.saldo <> COALESCE(SUM(m.monto), 0)
	`).Scan(&drifts).Error
	if err != nil {
		fmt.Fprintf(os.Stderr, "saldo query failed: %v\n", err)
		os.Exit(1)
	}

	var holes []loteHole
	err = db.Model(&models.CashflowMaestro{}).
		Select("numero_lote, COUNT(*) AS entradas, MAX(orden_en_lote) AS max_orden").
		Where("numero_lote > 0").
		Group("numero_lote").
		Having("COUNT(*) <> MAX(orden_en_lote) OR COUNT(DISTINCT orden_en_lote) <> COUNT(*)").
		Scan(&holes).Error
	if err != nil {
		fmt.Fprintf(os.Stderr, "lote query failed: %v\n", err)
		os.Exit(1)
	}

	for _, d := range drifts {
		fmt.Printf("DRIFT cashflow=%d productora=%d saldo=%s calculado=%s diff=%s\n",
			d.CashflowId, d.ProductoraId, d.Saldo, d.Calculado, d.Saldo.Sub(d.Calculado))
	}
	for _, h := range holes {
		fmt.Printf("LOTE HOLE lote=%d entradas=%d max_orden=%d\n", h.NumeroLote, h.Entradas, h.MaxOrden)
	}

	if len(drifts) == 0 && len(holes) == 0 {
		fmt.Println("OK: all saldos match their entries; all lotes are gap-free")
		return
	}
	os.Exit(3)
}
