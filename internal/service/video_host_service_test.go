package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"course_market_backend/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

func newHostServer(t *testing.T) (*httptest.Server, *HTTPVideoHost) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /uploads", func(w http.ResponseWriter, r *http.Request) {
		if user, pass, ok := r.BasicAuth(); !ok || user != "token-id" || pass != "token-secret" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"message":"bad credentials"}}`))
			return
		}
		w.Write([]byte(`{"data":{"uploadId":"up-42","uploadUrl":"http://upload.test/put/up-42"}}`))
	})
	mux.HandleFunc("GET /assets/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/assets/")
		if id == "missing" {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"message":"asset not found"}}`))
			return
		}
		w.Write([]byte(`{"data":{"assetId":"` + id + `","playbackId":"play-` + id + `","status":"ready","duration":12.5}}`))
	})
	mux.HandleFunc("DELETE /assets/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{}}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	host := NewHTTPVideoHost(config.VideoHostConfig{
		BaseURL:     srv.URL,
		TokenID:     "token-id",
		TokenSecret: "token-secret",
	})
	return srv, host
}

func TestHTTPVideoHostUnwrapsEnvelope(t *testing.T) {
	_, host := newHostServer(t)
	ctx := context.Background()

	upload, err := host.CreateDirectUpload(ctx)
	if err != nil {
		t.Fatalf("CreateDirectUpload: %v", err)
	}
	if upload.UploadID != "up-42" || upload.UploadURL != "http://upload.test/put/up-42" {
		t.Fatalf("upload = %+v", upload)
	}

	asset, err := host.GetAsset(ctx, "abc")
	if err != nil {
		t.Fatalf("GetAsset: %v", err)
	}
	if asset.AssetID != "abc" || asset.PlaybackID != "play-abc" || asset.Duration != 12.5 {
		t.Fatalf("asset = %+v", asset)
	}

	if err := host.DeleteAsset(ctx, "abc"); err != nil {
		t.Fatalf("DeleteAsset: %v", err)
	}
}

func TestHTTPVideoHostSurfacesRemoteError(t *testing.T) {
	_, host := newHostServer(t)

	_, err := host.GetAsset(context.Background(), "missing")
	if err == nil || !strings.Contains(err.Error(), "asset not found") {
		t.Fatalf("err = %v, want remote message surfaced", err)
	}
}

func TestHTTPVideoHostRejectsBadCredentials(t *testing.T) {
	srv, _ := newHostServer(t)
	bad := NewHTTPVideoHost(config.VideoHostConfig{
		BaseURL:     srv.URL,
		TokenID:     "token-id",
		TokenSecret: "wrong",
	})

	if _, err := bad.CreateDirectUpload(context.Background()); err == nil {
		t.Fatalf("bad credentials should fail")
	}
}

func TestSignPlaybackURL(t *testing.T) {
	svc := NewVideoHostService(newFakeVideoHost(), config.VideoHostConfig{
		BaseURL:     "http://video.test",
		SigningKey:  "sign-me",
		PlaybackTTL: time.Hour,
	})

	url, err := svc.SignPlaybackURL("play-1")
	if err != nil {
		t.Fatalf("SignPlaybackURL: %v", err)
	}
	prefix := "http://video.test/playback/play-1.m3u8?token="
	if !strings.HasPrefix(url, prefix) {
		t.Fatalf("url = %q, want prefix %q", url, prefix)
	}

	tokenStr := strings.TrimPrefix(url, prefix)
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("sign-me"), nil
	})
	if err != nil || !token.Valid {
		t.Fatalf("token invalid: %v", err)
	}
	if claims["sub"] != "play-1" || claims["aud"] != "playback" {
		t.Fatalf("claims = %v", claims)
	}
	exp, ok := claims["exp"].(float64)
	if !ok || time.Unix(int64(exp), 0).Before(time.Now()) {
		t.Fatalf("exp claim = %v", claims["exp"])
	}
}
