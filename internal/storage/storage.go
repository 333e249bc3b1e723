package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/andresuchdata/cra-planner/internal/config"
)

// ObjectInfo represents metadata for a remote file/object.
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// ObjectStorage captures the S3-compatible operations the report archive
// needs.
type ObjectStorage interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	GetObject(ctx context.Context, key string) ([]byte, error)
	UploadObject(ctx context.Context, key string, data []byte, contentType string) error
}

const (
	ProviderNone    = "none"
	ProviderSevalla = "sevalla"
	ProviderMinio   = "minio"
	ProviderLocal   = "local"
)

// New builds the configured object storage. It returns nil, nil when archiving
// to object storage is disabled.
func New(cfg config.StorageConfig) (ObjectStorage, error) {
	var (
		store ObjectStorage
		err   error
	)

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderNone:
		return nil, nil
	case ProviderSevalla, "s3":
		store, err = NewSevallaClient(SevallaConfig{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			UseSSL:    cfg.UseSSL,
		})
	case ProviderMinio:
		store, err = NewMinioClient(MinioConfig{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			UseSSL:    cfg.UseSSL,
		})
	case ProviderLocal:
		store, err = NewLocalClient(cfg.Endpoint)
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}

	if err != nil {
		return nil, err
	}
	return store, nil
}

// BranchPrefix is the key prefix every report of a branch is archived under.
func BranchPrefix(prefix, branch string) string {
	branch = strings.ToLower(strings.Join(strings.Fields(branch), "-"))
	if branch == "" {
		branch = "sin-sucursal"
	}
	return path.Join(strings.Trim(prefix, "/"), branch)
}

// ReportKey is the object key a report is archived under:
// <prefix>/<branch>/<yyyy>/<mm>/<file>.
func ReportKey(prefix, branch, fileName string, at time.Time) string {
	return path.Join(BranchPrefix(prefix, branch), at.Format("2006"), at.Format("01"), fileName)
}
