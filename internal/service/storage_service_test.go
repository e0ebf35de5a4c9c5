package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"course_market_backend/internal/config"
)

func TestDeleteFileCompletesBareKeys(t *testing.T) {
	provider := newFakeStorage()
	svc := &StorageService{Provider: provider}
	ctx := context.Background()

	// 带前缀的键原样删除
	if err := svc.DeleteFile(ctx, "courseMaterial/a.pdf", "courseMaterial"); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	// 历史数据的裸键按资源类别补全前缀
	if err := svc.DeleteFile(ctx, "b.pdf", "courseMaterial"); err != nil {
		t.Fatalf("DeleteFile bare key: %v", err)
	}

	keys := provider.deletedKeys()
	if len(keys) != 2 || keys[0] != "courseMaterial/a.pdf" || keys[1] != "courseMaterial/b.pdf" {
		t.Fatalf("deleted keys = %v", keys)
	}
}

func TestLocalStorageProviderRoundtrip(t *testing.T) {
	dir := t.TempDir()
	provider := &LocalStorageProvider{Config: &config.StorageConfig{LocalPath: dir}}
	ctx := context.Background()

	url, err := provider.Upload(ctx, "courseMaterial/notes.pdf", strings.NewReader("hello"), 5, "application/pdf")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if url != "/uploads/courseMaterial/notes.pdf" {
		t.Fatalf("url = %q", url)
	}

	data, err := os.ReadFile(filepath.Join(dir, "courseMaterial", "notes.pdf"))
	if err != nil || string(data) != "hello" {
		t.Fatalf("stored file: err=%v data=%q", err, data)
	}

	if err := provider.Delete(ctx, "courseMaterial/notes.pdf"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "courseMaterial", "notes.pdf")); !os.IsNotExist(err) {
		t.Fatalf("file should be removed, stat err = %v", err)
	}
}

func TestObjectKey(t *testing.T) {
	if got := ObjectKey("courseMaterial", "a.pdf"); got != "courseMaterial/a.pdf" {
		t.Fatalf("ObjectKey = %q", got)
	}
}
