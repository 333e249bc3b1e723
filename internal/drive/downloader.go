package drive

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// Document is a downloaded file.
type Document struct {
	File
	Data []byte
}

// Downloader pulls matching documents from a DocumentStore.
type Downloader struct {
	store DocumentStore
}

func NewDownloader(store DocumentStore) *Downloader {
	return &Downloader{store: store}
}

// spreadsheetExts are the extensions accepted as tabular documents. Native
// Google Sheets have no extension and are accepted by mime type.
var spreadsheetExts = map[string]struct{}{
	".xlsx": {},
	".xlsm": {},
	".xls":  {},
	".csv":  {},
}

func isSpreadsheet(f File) bool {
	if f.MimeType == spreadsheetMimeType {
		return true
	}
	_, ok := spreadsheetExts[strings.ToLower(filepath.Ext(f.Name))]
	return ok
}

// First returns the first spreadsheet in folderID whose name contains every
// token. ok is false when there is none.
func (d *Downloader) First(ctx context.Context, folderID string, tokens ...string) (Document, bool, error) {
	files, err := d.store.FindFiles(ctx, folderID, tokens...)
	if err != nil {
		return Document{}, false, err
	}

	for _, f := range files {
		if !isSpreadsheet(f) {
			continue
		}
		data, err := d.store.Download(ctx, f)
		if err != nil {
			return Document{}, false, err
		}
		return Document{File: f, Data: data}, true, nil
	}

	return Document{}, false, nil
}

// DownloadEach downloads every spreadsheet matching any of the token sets,
// once per file. A failed download is passed to onError and skipped; only
// listing failures and cancellation abort.
func (d *Downloader) DownloadEach(ctx context.Context, folderID string, tokenSets [][]string, onError func(File, error)) ([]Document, error) {
	seen := make(map[string]struct{})
	var docs []Document

	for _, tokens := range tokenSets {
		files, err := d.store.FindFiles(ctx, folderID, tokens...)
		if err != nil {
			return nil, fmt.Errorf("failed to search %v: %w", tokens, err)
		}

		for _, f := range files {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}

			if _, dup := seen[f.ID]; dup || !isSpreadsheet(f) {
				continue
			}
			seen[f.ID] = struct{}{}

			data, err := d.store.Download(ctx, f)
			if err != nil {
				if onError != nil {
					onError(f, err)
				} else {
					log.Warn().Err(err).Str("file", f.Name).Msg("skipping document")
				}
				continue
			}
			docs = append(docs, Document{File: f, Data: data})
		}
	}

	return docs, nil
}
