package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/afrydman/AuditTrail/internal/pkg"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// StorageProvider abstracts where document bytes live. Keys are opaque
// locators; the database rows hold the metadata.
type StorageProvider interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Size(ctx context.Context, key string) (int64, error)
	Copy(ctx context.Context, srcKey, dstKey string) error
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// StorageConfig represents storage configuration
type StorageConfig struct {
	Provider    string `json:"provider"`
	Bucket      string `json:"bucket"`
	Region      string `json:"region"`
	AccessKey   string `json:"access_key"`
	SecretKey   string `json:"secret_key"`
	Endpoint    string `json:"endpoint,omitempty"`
	LocalPath   string `json:"local_path"`
	MaxFileSize int64  `json:"max_file_size"`
}

// NewStorageProvider creates the provider named by the configuration
func NewStorageProvider(config *StorageConfig) (StorageProvider, error) {
	switch strings.ToLower(config.Provider) {
	case "s3", "aws":
		return NewS3Provider(config)
	case "local", "":
		return NewLocalProvider(config)
	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", config.Provider)
	}
}

// S3Provider implements S3-compatible storage
type S3Provider struct {
	s3Client *s3.S3
	uploader *s3manager.Uploader
	bucket   string
	region   string
}

// NewS3Provider creates a new S3 provider
func NewS3Provider(config *StorageConfig) (*S3Provider, error) {
	sess, err := session.NewSession(&aws.Config{
		Region:   aws.String(config.Region),
		Endpoint: aws.String(config.Endpoint),
		Credentials: credentials.NewStaticCredentials(
			config.AccessKey,
			config.SecretKey,
			"",
		),
		S3ForcePathStyle: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &S3Provider{
		s3Client: s3.New(sess),
		uploader: s3manager.NewUploader(sess),
		bucket:   config.Bucket,
		region:   config.Region,
	}, nil
}

// Upload streams a document body to S3
func (p *S3Provider) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	_, err := p.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return pkg.ErrStorageProvider.WithCause(fmt.Errorf("failed to upload to S3: %w", err))
	}
	return nil
}

// Download streams a document body from S3
func (p *S3Provider) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	result, err := p.s3Client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, pkg.ErrStorageProvider.WithCause(fmt.Errorf("failed to download from S3: %w", err))
	}
	return result.Body, nil
}

// Delete removes a document body from S3
func (p *S3Provider) Delete(ctx context.Context, key string) error {
	_, err := p.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return pkg.ErrStorageProvider.WithCause(fmt.Errorf("failed to delete from S3: %w", err))
	}
	return nil
}

// Exists reports whether the key is present in the bucket
func (p *S3Provider) Exists(ctx context.Context, key string) (bool, error) {
	_, err := p.s3Client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "404") {
			return false, nil
		}
		return false, pkg.ErrStorageProvider.WithCause(err)
	}
	return true, nil
}

// Size returns the stored object's length in bytes
func (p *S3Provider) Size(ctx context.Context, key string) (int64, error) {
	result, err := p.s3Client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "404") {
			return 0, pkg.ErrFileNotFound.WithCause(err)
		}
		return 0, pkg.ErrStorageProvider.WithCause(err)
	}
	return aws.Int64Value(result.ContentLength), nil
}

// Copy duplicates an object within the bucket
func (p *S3Provider) Copy(ctx context.Context, srcKey, dstKey string) error {
	_, err := p.s3Client.CopyObjectWithContext(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(p.bucket),
		CopySource: aws.String(p.bucket + "/" + srcKey),
		Key:        aws.String(dstKey),
	})
	if err != nil {
		return pkg.ErrStorageProvider.WithCause(fmt.Errorf("failed to copy within S3: %w", err))
	}
	return nil
}

// PresignedURL generates a time-limited download URL
func (p *S3Provider) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	req, _ := p.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})

	url, err := req.Presign(expiry)
	if err != nil {
		return "", pkg.ErrStorageProvider.WithCause(fmt.Errorf("failed to generate presigned URL: %w", err))
	}
	return url, nil
}

// LocalProvider implements filesystem storage rooted at a base path
type LocalProvider struct {
	basePath string
}

// NewLocalProvider creates a new local provider
func NewLocalProvider(config *StorageConfig) (*LocalProvider, error) {
	basePath := config.LocalPath
	if basePath == "" {
		basePath = "./storage"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalProvider{basePath: basePath}, nil
}

// resolve maps a key onto the base path, rejecting traversal outside it
func (p *LocalProvider) resolve(key string) (string, error) {
	cleaned := filepath.Clean(filepath.Join(p.basePath, filepath.FromSlash(key)))
	base := filepath.Clean(p.basePath)
	if cleaned != base && !strings.HasPrefix(cleaned, base+string(filepath.Separator)) {
		return "", pkg.ErrStorageProvider.WithCause(fmt.Errorf("key escapes storage root: %s", key))
	}
	return cleaned, nil
}

// Upload writes a document body under the base path
func (p *LocalProvider) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	path, err := p.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return pkg.ErrStorageProvider.WithCause(err)
	}

	f, err := os.Create(path)
	if err != nil {
		return pkg.ErrStorageProvider.WithCause(err)
	}
	defer f.Close()

	if _, err := io.Copy(f, body); err != nil {
		os.Remove(path)
		return pkg.ErrStorageProvider.WithCause(err)
	}
	return nil
}

// Download opens a stored document body
func (p *LocalProvider) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := p.resolve(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, pkg.ErrFileNotFound.WithCause(err)
		}
		return nil, pkg.ErrStorageProvider.WithCause(err)
	}
	return f, nil
}

// Delete removes a stored document body. Missing files are not errors;
// the metadata row is the source of truth for existence.
func (p *LocalProvider) Delete(ctx context.Context, key string) error {
	path, err := p.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return pkg.ErrStorageProvider.WithCause(err)
	}
	return nil
}

// Exists reports whether the key is present on disk
func (p *LocalProvider) Exists(ctx context.Context, key string) (bool, error) {
	path, err := p.resolve(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, pkg.ErrStorageProvider.WithCause(err)
	}
	return true, nil
}

// Size returns the stored file's length in bytes
func (p *LocalProvider) Size(ctx context.Context, key string) (int64, error) {
	path, err := p.resolve(key)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, pkg.ErrFileNotFound.WithCause(err)
		}
		return 0, pkg.ErrStorageProvider.WithCause(err)
	}
	return info.Size(), nil
}

// Copy duplicates a stored file under a new key
func (p *LocalProvider) Copy(ctx context.Context, srcKey, dstKey string) error {
	src, err := p.Download(ctx, srcKey)
	if err != nil {
		return err
	}
	defer src.Close()
	return p.Upload(ctx, dstKey, src, 0, "")
}

// PresignedURL is not supported for local storage; callers fall back to
// streaming through the API
func (p *LocalProvider) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return "", pkg.ErrStorageProvider.WithCause(fmt.Errorf("presigned URLs are not supported by local storage"))
}
