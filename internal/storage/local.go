// Package storage persists uploaded blobs and hands back public references.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Folders under the upload root.
const (
	FolderProfilePictures = "profile_pictures"
	FolderPostImages      = "post_images"
)

// PublicPrefix is the URL path the upload root is served under.
const PublicPrefix = "/uploads"

var ErrInvalidRef = errors.New("invalid storage reference")

// LocalStore writes blobs beneath a root directory on disk.
type LocalStore struct {
	root    string
	baseURL string
}

// NewLocalStore creates the root directory if needed. baseURL may be empty,
// in which case references are host-relative paths.
func NewLocalStore(root, baseURL string) (*LocalStore, error) {
	if root == "" {
		return nil, errors.New("upload root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload root: %w", err)
	}
	return &LocalStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Root returns the directory served at PublicPrefix.
func (s *LocalStore) Root() string { return s.root }

// FileName builds "<userID>_<unixmillis>_<rand><ext>".
func FileName(userID uint, now time.Time, ext string) string {
	return fmt.Sprintf("%d_%d_%s%s", userID, now.UnixMilli(), uuid.NewString()[:8], strings.ToLower(ext))
}

// Save writes data to folder/name and returns its public reference.
func (s *LocalStore) Save(ctx context.Context, folder, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !safeSegment(folder) || !safeSegment(name) {
		return "", ErrInvalidRef
	}

	dir := filepath.Join(s.root, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", folder, err)
	}

	// write-then-rename so readers never see a partial file
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("close upload: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("store upload: %w", err)
	}

	return s.baseURL + path.Join(PublicPrefix, folder, name), nil
}

// Delete removes the blob behind ref. A missing file is not an error.
func (s *LocalStore) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rel, err := s.relativePath(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.root, filepath.FromSlash(rel))); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete upload: %w", err)
	}
	return nil
}

// ParseRef splits an upload reference into folder and file name. Anything
// before PublicPrefix, such as a scheme and host, is ignored.
func ParseRef(ref string) (folder, name string, ok bool) {
	i := strings.Index(ref, PublicPrefix+"/")
	if i < 0 {
		return "", "", false
	}
	parts := strings.Split(ref[i+len(PublicPrefix)+1:], "/")
	if len(parts) != 2 || !safeSegment(parts[0]) || !safeSegment(parts[1]) {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// OwnedBy reports whether ref names a file in folder that FileName built for userID.
func OwnedBy(ref, folder string, userID uint) bool {
	f, name, ok := ParseRef(ref)
	return ok && f == folder && strings.HasPrefix(name, strconv.FormatUint(uint64(userID), 10)+"_")
}

func (s *LocalStore) relativePath(ref string) (string, error) {
	p := strings.TrimPrefix(ref, s.baseURL)
	p = strings.TrimPrefix(p, PublicPrefix+"/")
	parts := strings.Split(p, "/")
	if len(parts) != 2 || !safeSegment(parts[0]) || !safeSegment(parts[1]) {
		return "", ErrInvalidRef
	}
	return p, nil
}

func safeSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}
