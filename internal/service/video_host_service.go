package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"course_market_backend/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

// VideoHost 视频托管方客户端。对接远端流媒体服务：
// 直传上传、资产查询、资产删除。
type VideoHost interface {
	CreateDirectUpload(ctx context.Context) (*DirectUpload, error)
	GetUploadAsset(ctx context.Context, uploadID string) (*VideoAsset, error)
	GetAsset(ctx context.Context, assetID string) (*VideoAsset, error)
	DeleteAsset(ctx context.Context, assetID string) error
}

// DirectUpload 托管方返回的直传凭据
type DirectUpload struct {
	UploadID  string `json:"uploadId"`
	UploadURL string `json:"uploadUrl"`
}

// VideoAsset 托管方侧的视频资产
type VideoAsset struct {
	AssetID       string  `json:"assetId"`
	PlaybackID    string  `json:"playbackId"`
	Status        string  `json:"status"`
	Duration      float64 `json:"duration"`
	AspectRatio   string  `json:"aspectRatio"`
	MaxResolution string  `json:"maxResolution"`
}

// HTTPVideoHost 基于 HTTP JSON API 的视频托管方实现
type HTTPVideoHost struct {
	config config.VideoHostConfig
	client *http.Client
}

func NewHTTPVideoHost(cfg config.VideoHostConfig) *HTTPVideoHost {
	return &HTTPVideoHost{
		config: cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type videoHostEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (h *HTTPVideoHost) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.config.BaseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.SetBasicAuth(h.config.TokenID, h.config.TokenSecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope videoHostEnvelope
		if json.Unmarshal(respData, &envelope) == nil && envelope.Error != nil {
			return fmt.Errorf("video host %s %s: %s", method, path, envelope.Error.Message)
		}
		return fmt.Errorf("video host %s %s: status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		var envelope videoHostEnvelope
		if err := json.Unmarshal(respData, &envelope); err != nil {
			return err
		}
		return json.Unmarshal(envelope.Data, out)
	}
	return nil
}

func (h *HTTPVideoHost) CreateDirectUpload(ctx context.Context) (*DirectUpload, error) {
	var upload DirectUpload
	err := h.do(ctx, http.MethodPost, "/uploads", map[string]interface{}{
		"cors_origin": "*",
		"playback_policy": []string{"signed"},
	}, &upload)
	if err != nil {
		return nil, err
	}
	return &upload, nil
}

// GetUploadAsset 查询直传上传产出的资产，上传未完成时托管方返回空资产
func (h *HTTPVideoHost) GetUploadAsset(ctx context.Context, uploadID string) (*VideoAsset, error) {
	var asset VideoAsset
	err := h.do(ctx, http.MethodGet, "/uploads/"+uploadID, nil, &asset)
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

func (h *HTTPVideoHost) GetAsset(ctx context.Context, assetID string) (*VideoAsset, error) {
	var asset VideoAsset
	err := h.do(ctx, http.MethodGet, "/assets/"+assetID, nil, &asset)
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

func (h *HTTPVideoHost) DeleteAsset(ctx context.Context, assetID string) error {
	return h.do(ctx, http.MethodDelete, "/assets/"+assetID, nil, nil)
}

// VideoHostService 视频托管方门面：附带本地签发的播放令牌
type VideoHostService struct {
	Host VideoHost
	Cfg  config.VideoHostConfig
}

func NewVideoHostService(host VideoHost, cfg config.VideoHostConfig) *VideoHostService {
	return &VideoHostService{Host: host, Cfg: cfg}
}

// SignPlaybackURL 用签名密钥签发带过期时间的播放地址
func (s *VideoHostService) SignPlaybackURL(playbackID string) (string, error) {
	claims := jwt.MapClaims{
		"sub": playbackID,
		"aud": "playback",
		"exp": time.Now().Add(s.Cfg.PlaybackTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.Cfg.SigningKey))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/playback/%s.m3u8?token=%s", s.Cfg.BaseURL, playbackID, signed), nil
}
