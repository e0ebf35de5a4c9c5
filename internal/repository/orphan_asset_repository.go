package repository

import (
	"time"

	"course_market_backend/internal/model"

	"gorm.io/gorm"
)

// OrphanAssetRepository 记录待远端删除的孤儿资产，删除失败的行由后台任务重试
type OrphanAssetRepository struct {
	DB *gorm.DB
}

func NewOrphanAssetRepository(db *gorm.DB) *OrphanAssetRepository {
	return &OrphanAssetRepository{DB: db}
}

func (r *OrphanAssetRepository) Create(asset *model.OrphanAsset) error {
	return r.DB.Create(asset).Error
}

func (r *OrphanAssetRepository) Save(asset *model.OrphanAsset) error {
	return r.DB.Save(asset).Error
}

// FindPending 返回待重试的孤儿资产，最多 limit 条，按创建时间先进先出
func (r *OrphanAssetRepository) FindPending(limit int) ([]model.OrphanAsset, error) {
	var assets []model.OrphanAsset
	err := r.DB.Where("status IN ?", []model.OrphanStatus{model.OrphanStatusPending, model.OrphanStatusFailed}).
		Order("created_at ASC").
		Limit(limit).
		Find(&assets).Error
	return assets, err
}

func (r *OrphanAssetRepository) MarkDeleted(id uint) error {
	now := time.Now()
	return r.DB.Model(&model.OrphanAsset{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        model.OrphanStatusDeleted,
			"deleted_ok_at": &now,
		}).Error
}

func (r *OrphanAssetRepository) MarkFailed(id uint, lastErr string) error {
	return r.DB.Model(&model.OrphanAsset{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     model.OrphanStatusFailed,
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": lastErr,
		}).Error
}

func (r *OrphanAssetRepository) CountByStatus(status model.OrphanStatus) (int64, error) {
	var count int64
	err := r.DB.Model(&model.OrphanAsset{}).Where("status = ?", status).Count(&count).Error
	return count, err
}
