package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/chartmuseum/storage"
)

// SevallaConfig encapsulates the connection info for Sevalla (S3-compatible) storage.
type SevallaConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// SevallaClient implements ObjectStorage for Sevalla / S3-compatible services.
type SevallaClient struct {
	backend storage.Backend
}

var _ ObjectStorage = (*SevallaClient)(nil)

// NewSevallaClient builds a client backed by chartmuseum's Amazon storage backend.
func NewSevallaClient(cfg SevallaConfig) (*SevallaClient, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("sevalla endpoint must be provided")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("sevalla credentials must be provided")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("sevalla bucket must be provided")
	}

	region := regionOrDefault(cfg.Region)

	// The chartmuseum backend resolves credentials from the AWS environment.
	os.Setenv("AWS_ACCESS_KEY_ID", cfg.AccessKey)
	os.Setenv("AWS_SECRET_ACCESS_KEY", cfg.SecretKey)
	os.Setenv("AWS_REGION", region)
	os.Setenv("AWS_DEFAULT_REGION", region)

	backend := storage.NewAmazonS3BackendWithOptions(
		cfg.Bucket,
		"",
		region,
		endpointURL(cfg.Endpoint, cfg.UseSSL),
		"",
		&storage.AmazonS3Options{
			S3ForcePathStyle: awsBool(true),
		},
	)

	return &SevallaClient{backend: backend}, nil
}

// NewLocalClient archives objects below a local directory through
// chartmuseum's filesystem backend.
func NewLocalClient(dir string) (*SevallaClient, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("local storage directory must be provided")
	}
	return &SevallaClient{backend: storage.NewLocalFilesystemBackend(dir)}, nil
}

func (c *SevallaClient) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	objects, err := c.backend.ListObjects(prefix)
	if err != nil {
		return nil, fmt.Errorf("sevalla list failed: %w", err)
	}
	results := make([]ObjectInfo, 0, len(objects))
	for _, object := range objects {
		results = append(results, ObjectInfo{
			Key:          path.Join(prefix, object.Path),
			Size:         int64(len(object.Content)),
			LastModified: object.LastModified,
		})
	}
	return results, nil
}

func (c *SevallaClient) GetObject(ctx context.Context, key string) ([]byte, error) {
	object, err := c.backend.GetObject(key)
	if err != nil {
		return nil, fmt.Errorf("sevalla get %s failed: %w", key, err)
	}
	return object.Content, nil
}

// UploadObject stores data under key. The S3 backend derives the content type
// itself, so contentType is unused here.
func (c *SevallaClient) UploadObject(ctx context.Context, key string, data []byte, contentType string) error {
	if err := c.backend.PutObject(key, data); err != nil {
		return fmt.Errorf("sevalla upload %s failed: %w", key, err)
	}
	return nil
}

func endpointURL(endpoint string, useSSL bool) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	scheme := "https"
	if !useSSL {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s", scheme, strings.TrimPrefix(endpoint, "//"))
}

func regionOrDefault(region string) string {
	region = strings.TrimSpace(region)
	if region == "" {
		return "us-east-1"
	}
	return region
}

func awsBool(v bool) *bool {
	return &v
}
