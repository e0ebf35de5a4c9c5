package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"course_market_backend/internal/config"
	"course_market_backend/internal/model"
	"course_market_backend/internal/util"
	"course_market_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const uploadProgressKeyPrefix = "upload_progress:"

// UploadService 承接讲师侧的资产上传：
// 视频走视频托管方（直传或服务端分块中转），资料与封面走文件托管方。
type UploadService struct {
	Cfg       *config.Config
	Storage   *StorageService
	VideoHost VideoHost
	Redis     *redis.Client
}

func NewUploadService(cfg *config.Config, storage *StorageService, videoHost VideoHost, redisClient *redis.Client) *UploadService {
	return &UploadService{
		Cfg:       cfg,
		Storage:   storage,
		VideoHost: videoHost,
		Redis:     redisClient,
	}
}

// CreateVideoUpload 向托管方申请直传凭据，前端拿到 URL 后直接上传
func (s *UploadService) CreateVideoUpload(ctx context.Context) (*DirectUpload, error) {
	return s.VideoHost.CreateDirectUpload(ctx)
}

// ResolveVideoUpload 上传完成后把托管方资产换成草稿视频行（未入库）
func (s *UploadService) ResolveVideoUpload(ctx context.Context, uploadID string, ownerID uint, title string) (*model.DraftVideo, error) {
	asset, err := s.VideoHost.GetUploadAsset(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	return &model.DraftVideo{
		Title:       title,
		OwnerID:     ownerID,
		AssetID:     asset.AssetID,
		PlaybackID:  asset.PlaybackID,
		UploadID:    uploadID,
		Duration:    asset.Duration,
		Status:      asset.Status,
		AspectRatio: asset.AspectRatio,
		Resolution:  asset.MaxResolution,
	}, nil
}

// UploadMaterial 校验并上传课时资料文件，返回未入库的草稿资料行
func (s *UploadService) UploadMaterial(ctx context.Context, file *multipart.FileHeader) (*model.DraftMaterial, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !util.HasAllowedExtension(ext, util.AllowedMaterialExtensions) {
		return nil, util.ErrInvalidMaterialExt
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	filename := time.Now().Format("20060102150405") + "-" + uuid.NewString() + ext
	key, _, err := s.Storage.Upload(ctx, util.ResourceKindMaterial, filename, src, file.Size, mimeForExt(ext))
	if err != nil {
		return nil, err
	}

	return &model.DraftMaterial{
		FileKey:     key,
		FileName:    file.Filename,
		Extension:   strings.TrimPrefix(ext, "."),
		Size:        file.Size,
		IsTemporary: true,
	}, nil
}

// UploadThumbnail 上传课程封面，返回访问地址
func (s *UploadService) UploadThumbnail(ctx context.Context, file *multipart.FileHeader) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	mimeType, err := util.ValidateMimeType(src, []string{util.MimeImage})
	if err != nil {
		return "", err
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	filename := time.Now().Format("20060102150405") + "-" + util.GenerateRandomString(6) + ext
	_, url, err := s.Storage.Upload(ctx, util.ResourceKindThumbnail, filename, src, file.Size, mimeType)
	return url, err
}

// UploadVideoChunk 服务端分块中转上传。全部分块到齐后合并、探测元数据、
// 推给视频托管方，返回可挂到课时的草稿视频行。
func (s *UploadService) UploadVideoChunk(ctx context.Context, chunkFile *multipart.FileHeader, chunkNumber, totalChunks int, identifier, filename string, ownerID uint, title string) (*model.UploadProgress, *model.DraftVideo, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !util.HasAllowedExtension(ext, util.AllowedVideoExtensions) {
		return nil, nil, util.ErrInvalidVideoExt
	}

	tempDir := filepath.Join(s.Cfg.Storage.LocalPath, "temp", identifier)
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return nil, nil, err
	}

	chunkPath := filepath.Join(tempDir, fmt.Sprintf("chunk_%d", chunkNumber))
	src, err := chunkFile.Open()
	if err != nil {
		return nil, nil, err
	}
	defer src.Close()

	dst, err := os.Create(chunkPath)
	if err != nil {
		return nil, nil, err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return nil, nil, err
	}
	dst.Close() // 写入完成后立即关闭，不要等 defer，防止win文件锁问题

	// 进度放 Redis，多实例共享
	redisKey := uploadProgressKeyPrefix + identifier
	var progress *model.UploadProgress

	val, err := s.Redis.Get(ctx, redisKey).Result()
	if err == redis.Nil {
		progress = &model.UploadProgress{
			TotalChunks:    totalChunks,
			UploadedChunks: 0,
			FileSize:       0,
			Identifier:     identifier,
			Filename:       filename,
			CreatedAt:      time.Now(),
			Chunks:         make(map[int]bool),
		}
	} else if err != nil {
		return nil, nil, err
	} else {
		if err := json.Unmarshal([]byte(val), &progress); err != nil {
			return nil, nil, err
		}
	}

	if !progress.Chunks[chunkNumber] {
		progress.UploadedChunks++
		progress.FileSize += chunkFile.Size
		progress.Chunks[chunkNumber] = true
	}

	isComplete := progress.UploadedChunks == progress.TotalChunks

	updatedVal, _ := json.Marshal(progress)
	if err := s.Redis.Set(ctx, redisKey, updatedVal, 24*time.Hour).Err(); err != nil {
		return nil, nil, err
	}

	var draftVideo *model.DraftVideo
	if isComplete {
		finalPath := filepath.Join(s.Cfg.Storage.LocalPath, "temp", identifier+"_final"+ext)
		if err := mergeChunks(tempDir, finalPath, totalChunks); err != nil {
			return nil, nil, err
		}

		draftVideo, err = s.pushToVideoHost(ctx, finalPath, ownerID, title, filename)

		// 无论推送成败，本地临时文件都要清
		os.RemoveAll(tempDir)
		os.Remove(finalPath)
		s.Redis.Del(context.Background(), redisKey)

		if err != nil {
			return nil, nil, err
		}
	}

	return progress, draftVideo, nil
}

func mergeChunks(tempDir, finalPath string, totalChunks int) error {
	finalFile, err := os.Create(finalPath)
	if err != nil {
		return err
	}
	defer finalFile.Close()

	for i := 1; i <= totalChunks; i++ {
		chunkPath := filepath.Join(tempDir, fmt.Sprintf("chunk_%d", i))
		chunk, err := os.Open(chunkPath)
		if err != nil {
			return err
		}
		if _, err := io.Copy(finalFile, chunk); err != nil {
			chunk.Close()
			return err
		}
		chunk.Close()
	}
	return nil
}

// pushToVideoHost 本地探测元数据后把合并文件推给托管方
func (s *UploadService) pushToVideoHost(ctx context.Context, finalPath string, ownerID uint, title, filename string) (*model.DraftVideo, error) {
	videoInfo, err := util.GetVideoInfo(finalPath)
	if err != nil {
		logger.Log.Error("探测视频元数据失败", zap.String("file", filename), zap.Error(err))
		videoInfo = &util.VideoInfo{}
	}

	upload, err := s.VideoHost.CreateDirectUpload(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.putFile(ctx, upload.UploadURL, finalPath); err != nil {
		return nil, err
	}
	asset, err := s.VideoHost.GetUploadAsset(ctx, upload.UploadID)
	if err != nil {
		return nil, err
	}

	if title == "" {
		ext := filepath.Ext(filename)
		title = strings.TrimSuffix(filename, ext)
	}

	dv := &model.DraftVideo{
		Title:       title,
		OwnerID:     ownerID,
		AssetID:     asset.AssetID,
		PlaybackID:  asset.PlaybackID,
		UploadID:    upload.UploadID,
		Duration:    videoInfo.Duration,
		Status:      asset.Status,
		AspectRatio: videoInfo.AspectRatio(),
		Resolution:  videoInfo.Resolution(),
	}
	if dv.Duration == 0 {
		dv.Duration = asset.Duration
	}
	if dv.AspectRatio == "" {
		dv.AspectRatio = asset.AspectRatio
	}
	if dv.Resolution == "" {
		dv.Resolution = asset.MaxResolution
	}
	return dv, nil
}

func (s *UploadService) putFile(ctx context.Context, uploadURL, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, f)
	if err != nil {
		return err
	}
	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", util.MimeOctetStream)

	client := &http.Client{Timeout: 10 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("push to video host: status %d", resp.StatusCode)
	}
	return nil
}

func (s *UploadService) GetUploadProgress(identifier string) (*model.UploadProgress, error) {
	redisKey := uploadProgressKeyPrefix + identifier
	val, err := s.Redis.Get(context.Background(), redisKey).Result()
	if err == redis.Nil {
		return nil, util.ErrUploadProgressMissing
	} else if err != nil {
		return nil, err
	}

	var progress model.UploadProgress
	if err := json.Unmarshal([]byte(val), &progress); err != nil {
		return nil, err
	}
	return &progress, nil
}

func mimeForExt(ext string) string {
	switch ext {
	case ".pdf":
		return util.MimePDF
	default:
		return util.MimeOctetStream
	}
}
