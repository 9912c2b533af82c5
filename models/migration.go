package models

import (
	"github.com/javiertrombetta/capif-back-sub001/config"
	"github.com/javiertrombetta/capif-back-sub001/utils"
	"gorm.io/gorm"
)

// MigrateTable automigrates every model and seeds the single lote
// sequence row.
func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Productora{},
		&Fonograma{},
		&FonogramaParticipacion{},
		&Conflicto{},
		&ConflictoParte{},
		&ConflictoParteDecision{},
		&Cashflow{},
		&CashflowMaestro{},
		&CashflowLiquidacion{},
		&CashflowPago{},
		&CashflowRechazo{},
		&CashflowTraspaso{},
		&CashflowSecuenciaLote{},
		&CashflowLote{},
		&IdempotencyKey{},
	)
	utils.ErrorPanic(err)

	utils.ErrorPanic(seedSecuenciaLote(db))
}

func seedSecuenciaLote(db *gorm.DB) error {
	var count int64
	if err := db.Model(&CashflowSecuenciaLote{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return db.Create(&CashflowSecuenciaLote{UltimoLote: 0}).Error
}
