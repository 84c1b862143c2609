package blob

import (
	"context"
	"errors"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// exerciseStore runs the shared contract against any driver.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	info, err := store.Put(ctx, "rosters/a/roster.csv", strings.NewReader("name,room\n"), PutOptions{
		ContentType: "text/csv",
		Metadata:    map[string]string{"export": "a"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "rosters/a/roster.csv" || info.Size != int64(len("name,room\n")) {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := store.Put(ctx, "rosters/a/roster.csv", strings.NewReader("x"), PutOptions{}); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	if _, err := PutBytes(ctx, store, "rosters/b/roster.csv", []byte("b"), "text/csv"); err != nil {
		t.Fatalf("put bytes: %v", err)
	}
	if _, err := PutBytes(ctx, store, "other/c", []byte("c"), ""); err != nil {
		t.Fatalf("put bytes: %v", err)
	}

	data, err := ReadAll(ctx, store, "rosters/a/roster.csv")
	if err != nil || string(data) != "name,room\n" {
		t.Fatalf("read back %q %v", data, err)
	}
	head, err := store.Head(ctx, "rosters/a/roster.csv")
	if err != nil || head.ContentType != "text/csv" {
		t.Fatalf("head %+v %v", head, err)
	}
	if _, err := store.Head(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	list, err := store.List(ctx, "rosters/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Key != "rosters/a/roster.csv" || list[1].Key != "rosters/b/roster.csv" {
		t.Fatalf("unexpected list %+v", list)
	}

	deleted, err := store.Delete(ctx, "other/c")
	if err != nil || !deleted {
		t.Fatalf("delete: %v %v", deleted, err)
	}
}

func TestFilesystemStore(t *testing.T) {
	root := filepath.Join(t.TempDir(), "blobs")
	store, err := NewFilesystem(root)
	if err != nil {
		t.Fatalf("new filesystem: %v", err)
	}
	exerciseStore(t, store)

	if _, _, err := store.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if deleted, _ := store.Delete(context.Background(), "missing"); deleted {
		t.Fatalf("expected no-op delete")
	}
	for _, key := range []string{"", "../escape", "/abs"} {
		if _, err := store.Put(context.Background(), key, strings.NewReader("x"), PutOptions{}); err == nil {
			t.Fatalf("expected key %q rejected", key)
		}
	}
	if _, err := os.Stat(filepath.Join(root, "rosters", "a", "roster.csv.meta")); err != nil {
		t.Fatalf("expected metadata sidecar: %v", err)
	}

	store.WithBaseURL(&url.URL{Scheme: "https", Host: "hostel.example", Path: "/exports/files"})
	u, err := store.PresignURL(context.Background(), "rosters/a/roster.csv", SignedURLOptions{})
	if err != nil || u != "https://hostel.example/exports/files/rosters/a/roster.csv" {
		t.Fatalf("unexpected url %q %v", u, err)
	}
	if _, err := store.PresignURL(context.Background(), "k", SignedURLOptions{Method: "PUT"}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemory()
	exerciseStore(t, store)

	_, rc, err := store.Get(context.Background(), "rosters/b/roster.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	if string(b) != "b" {
		t.Fatalf("unexpected body %q", b)
	}
	if _, err := store.PresignURL(context.Background(), "k", SignedURLOptions{}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if store.Driver() != DriverMemory {
		t.Fatalf("unexpected driver %s", store.Driver())
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	fsStore, err := Open(ctx, Config{FSRoot: t.TempDir()})
	if err != nil || fsStore.Driver() != DriverFilesystem {
		t.Fatalf("default driver: %v %v", fsStore, err)
	}
	mem, err := Open(ctx, Config{Driver: DriverMemory})
	if err != nil || mem.Driver() != DriverMemory {
		t.Fatalf("memory driver: %v %v", mem, err)
	}
	if _, err := Open(ctx, Config{Driver: DriverS3}); err == nil {
		t.Fatalf("expected missing bucket error")
	}
	if _, err := Open(ctx, Config{Driver: "ftp"}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("HOSTELCORE_BLOB_DRIVER", "s3")
	t.Setenv("HOSTELCORE_BLOB_S3_BUCKET", "rosters")
	t.Setenv("HOSTELCORE_BLOB_S3_PATH_STYLE", "TRUE")
	cfg := ConfigFromEnv()
	if cfg.Driver != DriverS3 || cfg.S3.Bucket != "rosters" || !cfg.S3.PathStyle {
		t.Fatalf("unexpected config %+v", cfg)
	}
}
