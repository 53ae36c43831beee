package blob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// LocalStore keeps artifacts under a directory with a JSON sidecar
// (<key>.meta) holding the serving headers.
type LocalStore struct {
	root string
}

type metaFile struct {
	ContentType string    `json:"content_type,omitempty"`
	Filename    string    `json:"filename,omitempty"`
	Size        int       `json:"size"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func NewLocal(root string) (*LocalStore, error) {
	if root == "" {
		root = "./data/exports"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob directory: %w", err)
	}
	return &LocalStore{root: root}, nil
}

func (s *LocalStore) pathFor(key string) (string, error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(k)), nil
}

func (s *LocalStore) Put(_ context.Context, obj Object) error {
	dataPath, err := s.pathFor(obj.Key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dataPath), 0o755); err != nil {
		return fmt.Errorf("create blob directory: %w", err)
	}
	meta, err := json.Marshal(metaFile{
		ContentType: obj.ContentType,
		Filename:    obj.Filename,
		Size:        len(obj.Data),
		UpdatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode blob metadata: %w", err)
	}
	// Metadata first: a data file without sidecar would be served headerless.
	if err := writeAtomic(dataPath+".meta", meta); err != nil {
		return err
	}
	return writeAtomic(dataPath, obj.Data)
}

func (s *LocalStore) Get(_ context.Context, key string) (Object, error) {
	dataPath, err := s.pathFor(key)
	if err != nil {
		return Object{}, err
	}
	data, err := os.ReadFile(dataPath)
	if errors.Is(err, fs.ErrNotExist) {
		return Object{}, ErrNotFound
	}
	if err != nil {
		return Object{}, fmt.Errorf("read blob %s: %w", key, err)
	}
	raw, err := os.ReadFile(dataPath + ".meta")
	if err != nil {
		return Object{}, fmt.Errorf("read blob metadata %s: %w", key, err)
	}
	var mf metaFile
	if err := json.Unmarshal(raw, &mf); err != nil {
		return Object{}, fmt.Errorf("decode blob metadata %s: %w", key, err)
	}
	return Object{Key: key, ContentType: mf.ContentType, Filename: mf.Filename, Data: data}, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp blob: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp blob: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("move blob into place: %w", err)
	}
	return nil
}
