package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"course_market_backend/internal/config"
	"course_market_backend/internal/util"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// StorageProvider 定义通用存储接口（文件托管方）
type StorageProvider interface {
	Upload(ctx context.Context, fileKey string, reader io.Reader, size int64, contentType string) (string, error)
	UploadFile(ctx context.Context, fileKey string, localPath string, contentType string) (string, error)
	Delete(ctx context.Context, fileKey string) error
	GetURL(fileKey string) string
}

// LocalStorageProvider 本地存储实现
type LocalStorageProvider struct {
	Config *config.StorageConfig
}

func (p *LocalStorageProvider) Upload(ctx context.Context, fileKey string, reader io.Reader, size int64, contentType string) (string, error) {
	dst := filepath.Join(p.Config.LocalPath, fileKey)
	dir := filepath.Dir(dst)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", err
		}
	}

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer out.Close()

	_, err = io.Copy(out, reader)
	if err != nil {
		return "", err
	}

	return p.GetURL(fileKey), nil
}

func (p *LocalStorageProvider) UploadFile(ctx context.Context, fileKey string, localPath string, contentType string) (string, error) {
	dst := filepath.Join(p.Config.LocalPath, fileKey)
	dir := filepath.Dir(dst)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", err
		}
	}

	if localPath == dst {
		return p.GetURL(fileKey), nil
	}

	srcFile, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer dstFile.Close()

	_, err = io.Copy(dstFile, srcFile)
	if err != nil {
		return "", err
	}

	return p.GetURL(fileKey), nil
}

func (p *LocalStorageProvider) Delete(ctx context.Context, fileKey string) error {
	dst := filepath.Join(p.Config.LocalPath, fileKey)
	return os.Remove(dst)
}

func (p *LocalStorageProvider) GetURL(fileKey string) string {
	return "/uploads/" + fileKey
}

// MinioStorageProvider MinIO存储实现
type MinioStorageProvider struct {
	Config *config.StorageConfig
	Client *minio.Client
}

func NewMinioStorageProvider(cfg *config.StorageConfig) (*MinioStorageProvider, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: false,
	})
	if err != nil {
		return nil, err
	}
	return &MinioStorageProvider{Config: cfg, Client: client}, nil
}

func (p *MinioStorageProvider) Upload(ctx context.Context, fileKey string, reader io.Reader, size int64, contentType string) (string, error) {
	_, err := p.Client.PutObject(ctx, p.Config.MinioBucket, fileKey, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return p.GetURL(fileKey), nil
}

func (p *MinioStorageProvider) UploadFile(ctx context.Context, fileKey string, localPath string, contentType string) (string, error) {
	_, err := p.Client.FPutObject(ctx, p.Config.MinioBucket, fileKey, localPath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return p.GetURL(fileKey), nil
}

func (p *MinioStorageProvider) Delete(ctx context.Context, fileKey string) error {
	return p.Client.RemoveObject(ctx, p.Config.MinioBucket, fileKey, minio.RemoveObjectOptions{})
}

func (p *MinioStorageProvider) GetURL(fileKey string) string {
	return fmt.Sprintf("http://%s/%s/%s", p.Config.MinioEndpoint, p.Config.MinioBucket, fileKey)
}

// OSSStorageProvider 阿里云 OSS 存储实现
type OSSStorageProvider struct {
	Config *config.StorageConfig
	Bucket *oss.Bucket
}

func NewOSSStorageProvider(cfg *config.StorageConfig) (*OSSStorageProvider, error) {
	client, err := oss.New(cfg.OSSEndpoint, cfg.OSSAccessKey, cfg.OSSSecretKey)
	if err != nil {
		return nil, err
	}
	bucket, err := client.Bucket(cfg.OSSBucket)
	if err != nil {
		return nil, err
	}
	return &OSSStorageProvider{Config: cfg, Bucket: bucket}, nil
}

func (p *OSSStorageProvider) Upload(ctx context.Context, fileKey string, reader io.Reader, size int64, contentType string) (string, error) {
	err := p.Bucket.PutObject(fileKey, reader, oss.ContentType(contentType))
	if err != nil {
		return "", err
	}
	return p.GetURL(fileKey), nil
}

func (p *OSSStorageProvider) UploadFile(ctx context.Context, fileKey string, localPath string, contentType string) (string, error) {
	err := p.Bucket.PutObjectFromFile(fileKey, localPath, oss.ContentType(contentType))
	if err != nil {
		return "", err
	}
	return p.GetURL(fileKey), nil
}

func (p *OSSStorageProvider) Delete(ctx context.Context, fileKey string) error {
	return p.Bucket.DeleteObject(fileKey)
}

func (p *OSSStorageProvider) GetURL(fileKey string) string {
	return fmt.Sprintf("https://%s.%s/%s", p.Config.OSSBucket, p.Config.OSSEndpoint, fileKey)
}

// StorageService 文件托管方门面：对象键统一带资源类别前缀
type StorageService struct {
	Provider StorageProvider
}

func NewStorageService(cfg *config.Config) (*StorageService, error) {
	var provider StorageProvider
	var err error

	switch cfg.Storage.Type {
	case util.StorageMinio:
		provider, err = NewMinioStorageProvider(&cfg.Storage)
	case util.StorageOSS:
		provider, err = NewOSSStorageProvider(&cfg.Storage)
	default:
		provider = &LocalStorageProvider{Config: &cfg.Storage}
	}
	if err != nil {
		return nil, err
	}
	return &StorageService{Provider: provider}, nil
}

// ObjectKey 生成带资源类别前缀的对象键
func ObjectKey(resourceKind, filename string) string {
	return resourceKind + "/" + filename
}

func (s *StorageService) Upload(ctx context.Context, resourceKind, filename string, reader io.Reader, size int64, contentType string) (string, string, error) {
	key := ObjectKey(resourceKind, filename)
	url, err := s.Provider.Upload(ctx, key, reader, size, contentType)
	return key, url, err
}

// DeleteFile 删除远端文件。资源类别已编码在对象键前缀中，
// 键未带前缀时按给定类别补全，兼容历史数据。
func (s *StorageService) DeleteFile(ctx context.Context, fileKey, resourceKind string) error {
	if filepath.Dir(fileKey) == "." && resourceKind != "" {
		fileKey = ObjectKey(resourceKind, fileKey)
	}
	return s.Provider.Delete(ctx, fileKey)
}

func (s *StorageService) GetURL(fileKey string) string {
	return s.Provider.GetURL(fileKey)
}
