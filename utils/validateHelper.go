package utils

import (
	"context"

	"gorm.io/gorm"
)

// count records, using WHERE business_id = ? AND $condition
// business_id can be blank for maintenance tools
func ResourceCountWhere[T any](ctx context.Context, db *gorm.DB, businessId string, condition string, value ...interface{}) (int64, error) {
	var model T

	dbCtx := db.WithContext(ctx).Model(&model)
	var count int64
	if businessId != "" {
		dbCtx = dbCtx.Where("business_id = ?", businessId)
	}
	dbCtx = dbCtx.Where(condition, value...)
	if err := dbCtx.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
