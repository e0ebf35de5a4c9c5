package service

import (
	"context"
	"time"

	"course_market_backend/internal/model"
	"course_market_backend/internal/repository"
	"course_market_backend/pkg/logger"
	"course_market_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// OrphanRef 一次待清理的远端资产引用
type OrphanRef struct {
	Kind         model.OrphanKind
	RemoteID     string
	ResourceKind string
}

// CleanupService 孤儿资产清理。远端删除尽力而为，永不让调用方失败：
// 删不掉的条目落库，由后台定时任务重试。
type CleanupService struct {
	OrphanRepo *repository.OrphanAssetRepository
	Storage    *StorageService
	VideoHost  VideoHost
}

func NewCleanupService(orphanRepo *repository.OrphanAssetRepository, storage *StorageService, videoHost VideoHost) *CleanupService {
	return &CleanupService{
		OrphanRepo: orphanRepo,
		Storage:    storage,
		VideoHost:  videoHost,
	}
}

// CleanupResult 一轮清理的计数，按资产类别区分删除数
type CleanupResult struct {
	VideoAssetsDeleted int `json:"videoAssetsDeleted"`
	FilesDeleted       int `json:"filesDeleted"`
	Failed             int `json:"failed"`
}

// CleanOrphans 逐条删除远端资产，引用先去重。任何失败都只记录不上抛
func (s *CleanupService) CleanOrphans(ctx context.Context, refs []OrphanRef) CleanupResult {
	var result CleanupResult
	seen := make(map[string]bool, len(refs))
	for _, ref := range refs {
		if ref.RemoteID == "" {
			continue
		}
		key := string(ref.Kind) + ":" + ref.RemoteID
		if seen[key] {
			continue
		}
		seen[key] = true

		if err := s.deleteRemote(ctx, ref.Kind, ref.RemoteID, ref.ResourceKind); err != nil {
			monitoring.OrphanCleanupCounter.WithLabelValues(string(ref.Kind), "failed").Inc()
			logger.Log.Warn("孤儿资产删除失败，转入后台重试",
				zap.String("kind", string(ref.Kind)),
				zap.String("remoteId", ref.RemoteID),
				zap.Error(err))
			s.park(ref, err)
			result.Failed++
			continue
		}
		monitoring.OrphanCleanupCounter.WithLabelValues(string(ref.Kind), "deleted").Inc()
		if ref.Kind == model.OrphanVideoAsset {
			result.VideoAssetsDeleted++
		} else {
			result.FilesDeleted++
		}
	}
	return result
}

func (s *CleanupService) deleteRemote(ctx context.Context, kind model.OrphanKind, remoteID, resourceKind string) error {
	if kind == model.OrphanVideoAsset {
		return s.VideoHost.DeleteAsset(ctx, remoteID)
	}
	return s.Storage.DeleteFile(ctx, remoteID, resourceKind)
}

// park 把删除失败的条目落库，进程重启也不会丢失清理义务
func (s *CleanupService) park(ref OrphanRef, cause error) {
	asset := &model.OrphanAsset{
		Kind:         ref.Kind,
		RemoteID:     ref.RemoteID,
		ResourceKind: ref.ResourceKind,
		Status:       model.OrphanStatusFailed,
		Attempts:     1,
		LastError:    cause.Error(),
	}
	if err := s.OrphanRepo.Create(asset); err != nil {
		logger.Log.Error("孤儿资产落库失败", zap.String("remoteId", ref.RemoteID), zap.Error(err))
	}
}

// RetryParked 重试落库的失败条目，返回本轮成功删除的条数
func (s *CleanupService) RetryParked(ctx context.Context, batch int) int {
	assets, err := s.OrphanRepo.FindPending(batch)
	if err != nil {
		logger.Log.Error("读取待重试孤儿资产失败", zap.Error(err))
		return 0
	}

	deleted := 0
	for i := range assets {
		asset := assets[i]
		if err := s.deleteRemote(ctx, asset.Kind, asset.RemoteID, asset.ResourceKind); err != nil {
			monitoring.OrphanCleanupCounter.WithLabelValues(string(asset.Kind), "retry_failed").Inc()
			if markErr := s.OrphanRepo.MarkFailed(asset.ID, err.Error()); markErr != nil {
				logger.Log.Error("更新孤儿资产重试状态失败", zap.Uint("id", asset.ID), zap.Error(markErr))
			}
			continue
		}
		monitoring.OrphanCleanupCounter.WithLabelValues(string(asset.Kind), "deleted").Inc()
		if err := s.OrphanRepo.MarkDeleted(asset.ID); err != nil {
			logger.Log.Error("标记孤儿资产已删除失败", zap.Uint("id", asset.ID), zap.Error(err))
			continue
		}
		deleted++
	}
	return deleted
}

// StartRetryLoop 启动后台重试循环，ctx 取消时退出
func (s *CleanupService) StartRetryLoop(ctx context.Context, period time.Duration) {
	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.RetryParked(ctx, 100); n > 0 {
					logger.Log.Info("后台清理孤儿资产", zap.Int("deleted", n))
				}
			}
		}
	}()
}
