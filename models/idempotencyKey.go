package models

import "time"

// IdempotencyKey dedupes at-least-once facade calls (liquidation batch
// ingestion) by caller-supplied reference.
type IdempotencyKey struct {
	ID          int               `gorm:"primary_key" json:"id"`
	HandlerName string            `gorm:"size:100;not null;uniqueIndex:idx_idem_handler_ref,priority:1" json:"handler_name"`
	Reference   string            `gorm:"size:100;not null;uniqueIndex:idx_idem_handler_ref,priority:2" json:"reference"`
	Status      IdempotencyStatus `gorm:"type:enum('STARTED','SUCCEEDED','FAILED');not null" json:"status"`
	LastError   *string           `gorm:"type:text" json:"last_error"`
	CreatedAt   time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}
