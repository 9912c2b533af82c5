package workflow

import (
	"errors"
	"time"

	"github.com/javiertrombetta/capif-back-sub001/models"
	"github.com/javiertrombetta/capif-back-sub001/utils"
	"gorm.io/gorm"
)

var ErrIdempotencyInProgress = errors.New("idempotency in progress")

// BeginIdempotency inserts STARTED. If SUCCEEDED exists, returns
// (true, nil) meaning "skip safely".
func BeginIdempotency(tx *gorm.DB, handlerName, reference string) (skip bool, err error) {
	key := models.IdempotencyKey{
		HandlerName: handlerName,
		Reference:   reference,
		Status:      models.IdempotencyStatusStarted,
	}
	if err := tx.Create(&key).Error; err == nil {
		return false, nil
	} else if !utils.IsDuplicateKeyErr(err) {
		return false, err
	}

	var existing models.IdempotencyKey
	if err := tx.Where("handler_name = ? AND reference = ?", handlerName, reference).
		First(&existing).Error; err != nil {
		return false, err
	}

	switch existing.Status {
	case models.IdempotencyStatusSucceeded:
		return true, nil
	case models.IdempotencyStatusStarted:
		// Another caller may still be processing; let it retry later if stale.
		if time.Since(existing.UpdatedAt) < 5*time.Minute {
			return false, ErrIdempotencyInProgress
		}
		return false, tx.Model(&models.IdempotencyKey{}).
			Where("id = ?", existing.ID).
			Updates(map[string]interface{}{"status": models.IdempotencyStatusStarted, "last_error": nil}).Error
	default:
		return false, tx.Model(&models.IdempotencyKey{}).
			Where("id = ?", existing.ID).
			Updates(map[string]interface{}{"status": models.IdempotencyStatusStarted, "last_error": nil}).Error
	}
}

func MarkIdempotencySucceeded(tx *gorm.DB, handlerName, reference string) error {
	return tx.Model(&models.IdempotencyKey{}).
		Where("handler_name = ? AND reference = ?", handlerName, reference).
		Updates(map[string]interface{}{"status": models.IdempotencyStatusSucceeded, "last_error": nil}).Error
}

// MarkIdempotencyFailed records the failure for operators. Called after
// the posting transaction rolled back (which removed the STARTED row),
// so it upserts. BeginIdempotency resets FAILED keys, so a retry still
// re-processes.
func MarkIdempotencyFailed(db *gorm.DB, handlerName, reference string, err error) error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	res := db.Model(&models.IdempotencyKey{}).
		Where("handler_name = ? AND reference = ?", handlerName, reference).
		Updates(map[string]interface{}{"status": models.IdempotencyStatusFailed, "last_error": &msg})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	key := models.IdempotencyKey{
		HandlerName: handlerName,
		Reference:   reference,
		Status:      models.IdempotencyStatusFailed,
		LastError:   &msg,
	}
	return db.Create(&key).Error
}
