package drive

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DirStore serves documents from a local directory tree. Folder IDs are paths
// relative to the root. Used for offline runs and tests.
type DirStore struct {
	root string
}

var _ DocumentStore = (*DirStore)(nil)

func NewDirStore(root string) *DirStore {
	return &DirStore{root: root}
}

func (s *DirStore) folder(folderID string) string {
	return filepath.Join(s.root, filepath.FromSlash(folderID))
}

func (s *DirStore) FindFiles(ctx context.Context, folderID string, tokens ...string) ([]File, error) {
	dir := s.folder(folderID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("unable to list %s: %w", dir, err)
	}

	var files []File
	for _, e := range entries {
		if e.IsDir() || !containsAll(e.Name(), tokens) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, File{
			ID:           filepath.ToSlash(filepath.Join(folderID, e.Name())),
			Name:         e.Name(),
			MimeType:     mime.TypeByExtension(filepath.Ext(e.Name())),
			ModifiedTime: info.ModTime().UTC().Format("2006-01-02T15:04:05Z"),
			Size:         info.Size(),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// containsAll matches the way Drive's "name contains" does: case-insensitive.
func containsAll(name string, tokens []string) bool {
	upper := strings.ToUpper(name)
	for _, t := range tokens {
		if t = strings.TrimSpace(t); t != "" && !strings.Contains(upper, strings.ToUpper(t)) {
			return false
		}
	}
	return true
}

func (s *DirStore) Download(ctx context.Context, file File) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(file.ID)))
	if err != nil {
		return nil, fmt.Errorf("unable to download %s: %w", file.Name, err)
	}
	return data, nil
}

func (s *DirStore) Upload(ctx context.Context, folderID, name, mimeType string, data []byte) (File, error) {
	dir := s.folder(folderID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return File{}, fmt.Errorf("unable to create %s: %w", dir, err)
	}

	path := filepath.Join(dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return File{}, fmt.Errorf("unable to upload %s: %w", name, err)
	}

	return File{
		ID:       filepath.ToSlash(filepath.Join(folderID, filepath.Base(name))),
		Name:     filepath.Base(name),
		MimeType: mimeType,
		Size:     int64(len(data)),
	}, nil
}
