package debuglog

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	storage "github.com/supabase-community/storage-go"
)

// ObjectStore is the narrow blob-storage surface the debug log needs.
type ObjectStore interface {
	Put(ctx context.Context, path string, data []byte, contentType string) error
	Get(ctx context.Context, path string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

// FSStore persists objects under a local directory. Used for tests and
// single-host deployments without a bucket.
type FSStore struct {
	root string
}

// NewFSStore creates a filesystem-backed object store rooted at dir.
func NewFSStore(dir string) (*FSStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("fs store: directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("fs store: ensure root: %w", err)
	}
	return &FSStore{root: dir}, nil
}

func (s *FSStore) Put(_ context.Context, path string, data []byte, _ string) error {
	full := filepath.Join(s.root, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("fs store: ensure directory: %w", err)
	}
	return os.WriteFile(full, data, 0o644)
}

func (s *FSStore) Get(_ context.Context, path string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.root, filepath.FromSlash(path)))
}

func (s *FSStore) List(_ context.Context, prefix string) ([]string, error) {
	dir := filepath.Join(s.root, filepath.FromSlash(prefix))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("fs store: list %s: %w", prefix, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, strings.TrimSuffix(prefix, "/")+"/"+entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// SupabaseStore persists objects in a Supabase storage bucket.
type SupabaseStore struct {
	client *storage.Client
	bucket string
}

// NewSupabaseStore creates a bucket-backed object store.
func NewSupabaseStore(projectURL, serviceKey, bucket string) (*SupabaseStore, error) {
	projectURL = strings.TrimSpace(projectURL)
	serviceKey = strings.TrimSpace(serviceKey)
	bucket = strings.TrimSpace(bucket)
	if projectURL == "" || serviceKey == "" {
		return nil, fmt.Errorf("supabase store: url and key required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("supabase store: bucket required")
	}
	endpoint := strings.TrimRight(projectURL, "/") + "/storage/v1"
	client := storage.NewClient(endpoint, serviceKey, nil)
	return &SupabaseStore{client: client, bucket: bucket}, nil
}

func (s *SupabaseStore) Put(_ context.Context, path string, data []byte, contentType string) error {
	upsert := true
	_, err := s.client.UploadFile(s.bucket, path, bytes.NewReader(data), storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return fmt.Errorf("supabase store: upload %s: %w", path, err)
	}
	return nil
}

func (s *SupabaseStore) Get(_ context.Context, path string) ([]byte, error) {
	data, err := s.client.DownloadFile(s.bucket, path)
	if err != nil {
		return nil, fmt.Errorf("supabase store: download %s: %w", path, err)
	}
	return data, nil
}

func (s *SupabaseStore) List(_ context.Context, prefix string) ([]string, error) {
	folder := strings.TrimSuffix(prefix, "/")
	objects, err := s.client.ListFiles(s.bucket, folder, storage.FileSearchOptions{
		Limit: 1000,
		SortByOptions: storage.SortBy{
			Column: "name",
			Order:  "asc",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("supabase store: list %s: %w", prefix, err)
	}
	names := make([]string, 0, len(objects))
	for _, object := range objects {
		names = append(names, folder+"/"+object.Name)
	}
	sort.Strings(names)
	return names, nil
}
