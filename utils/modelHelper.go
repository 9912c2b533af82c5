package utils

import (
	"context"

	"github.com/javiertrombetta/capif-back-sub001/config"
	"gorm.io/gorm"
)

// FetchModel loads one record by id, preloading the given associations.
func FetchModel[T any](ctx context.Context, id int, associations ...string) (*T, error) {
	db := config.GetDB()
	return FetchModelTx[T](db.WithContext(ctx), id, associations...)
}

// FetchModelTx is FetchModel on an explicit transaction handle so that
// workflows can read rows created earlier in the same transaction.
func FetchModelTx[T any](tx *gorm.DB, id int, associations ...string) (*T, error) {
	dbCtx := tx
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	err := dbCtx.First(&result, id).Error
	if err != nil {
		return nil, &NotFoundError{Resource: tableNameOf[T](tx), Id: id}
	}
	return &result, nil
}

// ValidateResourceId checks that an id exists; returns a typed NotFoundError.
func ValidateResourceId[T any](ctx context.Context, id interface{}) error {
	count, err := ResourceCountWhere[T](ctx, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		var model T
		db := config.GetDB()
		return &NotFoundError{Resource: tableNameOfModel(db, &model), Id: id}
	}
	return nil
}

// ResourceCountWhere counts records matching the condition.
func ResourceCountWhere[T any](ctx context.Context, condition string, value ...interface{}) (int64, error) {
	var model T

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&model)
	dbCtx.Where(condition, value...)
	var count int64
	if err := dbCtx.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func tableNameOf[T any](tx *gorm.DB) string {
	var model T
	return tableNameOfModel(tx, &model)
}

func tableNameOfModel(tx *gorm.DB, model interface{}) string {
	if tx == nil {
		return "record"
	}
	stmt := &gorm.Statement{DB: tx}
	if err := stmt.Parse(model); err != nil || stmt.Schema == nil {
		return "record"
	}
	return stmt.Schema.Table
}
