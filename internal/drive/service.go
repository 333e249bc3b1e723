package drive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const (
	folderMimeType      = "application/vnd.google-apps.folder"
	spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"
	XLSXMimeType        = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ErrNotConfigured is returned when no service-account credentials are set.
var ErrNotConfigured = errors.New("google drive credentials not configured")

// File is the metadata of a Drive document.
type File struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	ModifiedTime string `json:"modifiedTime,omitempty"`
	Size         int64  `json:"size,string,omitempty"`
}

// DocumentStore is the document source the planner reads from and archives
// reports to.
type DocumentStore interface {
	// FindFiles lists non-trashed files in folderID whose name contains every
	// token.
	FindFiles(ctx context.Context, folderID string, tokens ...string) ([]File, error)
	Download(ctx context.Context, file File) ([]byte, error)
	Upload(ctx context.Context, folderID, name, mimeType string, data []byte) (File, error)
}

type Service struct {
	srv *drive.Service
}

var _ DocumentStore = (*Service)(nil)

// NewService authenticates with service-account JSON credentials. The full
// drive scope is requested so reports can be uploaded.
func NewService(ctx context.Context, credentialsJSON string) (*Service, error) {
	if strings.TrimSpace(credentialsJSON) == "" {
		return nil, ErrNotConfigured
	}

	config, err := google.JWTConfigFromJSON([]byte(credentialsJSON), drive.DriveScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse drive credentials: %w", err)
	}

	srv, err := drive.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create drive client: %w", err)
	}

	return &Service{srv: srv}, nil
}

func (s *Service) FindFiles(ctx context.Context, folderID string, tokens ...string) ([]File, error) {
	q := buildQuery(folderID, tokens...)

	var files []File
	err := s.srv.Files.List().
		Q(q).
		Fields("nextPageToken, files(id, name, mimeType, modifiedTime, size)").
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		OrderBy("name").
		Pages(ctx, func(page *drive.FileList) error {
			for _, f := range page.Files {
				files = append(files, File{
					ID:           f.Id,
					Name:         f.Name,
					MimeType:     f.MimeType,
					ModifiedTime: f.ModifiedTime,
					Size:         f.Size,
				})
			}
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("unable to list files in %s: %w", folderID, err)
	}

	return files, nil
}

// buildQuery renders a Drive search query. Folders are never returned.
func buildQuery(folderID string, tokens ...string) string {
	if folderID == "" {
		folderID = "root"
	}

	clauses := []string{
		fmt.Sprintf("'%s' in parents", escapeQuery(folderID)),
		"trashed=false",
		fmt.Sprintf("mimeType!='%s'", folderMimeType),
	}
	for _, token := range tokens {
		if token = strings.TrimSpace(token); token == "" {
			continue
		}
		clauses = append(clauses, fmt.Sprintf("name contains '%s'", escapeQuery(token)))
	}
	return strings.Join(clauses, " and ")
}

var queryEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func escapeQuery(v string) string {
	return queryEscaper.Replace(v)
}

// Download returns the file content. Native Google Sheets are exported as
// XLSX.
func (s *Service) Download(ctx context.Context, file File) ([]byte, error) {
	var (
		body io.ReadCloser
		err  error
	)

	if file.MimeType == spreadsheetMimeType {
		resp, exportErr := s.srv.Files.Export(file.ID, XLSXMimeType).Context(ctx).Download()
		if exportErr == nil {
			body = resp.Body
		}
		err = exportErr
	} else {
		resp, getErr := s.srv.Files.Get(file.ID).SupportsAllDrives(true).Context(ctx).Download()
		if getErr == nil {
			body = resp.Body
		}
		err = getErr
	}
	if err != nil {
		return nil, fmt.Errorf("unable to download %s: %w", file.Name, err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", file.Name, err)
	}
	return data, nil
}

func (s *Service) Upload(ctx context.Context, folderID, name, mimeType string, data []byte) (File, error) {
	meta := &drive.File{Name: name, MimeType: mimeType}
	if folderID != "" {
		meta.Parents = []string{folderID}
	}

	created, err := s.srv.Files.Create(meta).
		Media(bytes.NewReader(data)).
		SupportsAllDrives(true).
		Fields("id, name, mimeType, modifiedTime, size").
		Context(ctx).
		Do()
	if err != nil {
		return File{}, fmt.Errorf("unable to upload %s: %w", name, err)
	}

	return File{
		ID:           created.Id,
		Name:         created.Name,
		MimeType:     created.MimeType,
		ModifiedTime: created.ModifiedTime,
		Size:         created.Size,
	}, nil
}

// FindFolderByPath walks a slash-separated folder path from the drive root.
func (s *Service) FindFolderByPath(ctx context.Context, path string) (string, error) {
	currentID := "root"

	for _, folder := range strings.Split(path, "/") {
		if folder == "" {
			continue
		}

		result, err := s.srv.Files.List().
			Q(fmt.Sprintf("'%s' in parents and name='%s' and mimeType='%s' and trashed=false",
				currentID, escapeQuery(folder), folderMimeType)).
			Fields("files(id, name)").
			SupportsAllDrives(true).
			IncludeItemsFromAllDrives(true).
			Context(ctx).
			Do()
		if err != nil {
			return "", fmt.Errorf("error finding folder %s: %w", folder, err)
		}

		if len(result.Files) == 0 {
			return "", fmt.Errorf("folder not found: %s", folder)
		}

		currentID = result.Files[0].Id
	}

	return currentID, nil
}
