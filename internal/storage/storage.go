package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ogdean/talkcut/internal/config"
	"github.com/ogdean/talkcut/internal/logging"
)

const (
	// Part size for multipart uploads of large source videos (10MB)
	uploadPartSize = 10 * 1024 * 1024

	// Concurrent parts per multipart upload
	uploadThreads = 10
)

// Storage provides object storage operations for source videos, extracted
// audio, generated overlays, and rendered outputs.
type Storage struct {
	client     *minio.Client
	bucketName string
	logger     *logging.Logger
}

// New creates a new storage client
func New(cfg config.StorageConfig, logger *logging.Logger) (*Storage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	// Ensure bucket exists
	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{
			Region: cfg.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &Storage{
		client:     client,
		bucketName: cfg.BucketName,
		logger:     logger,
	}, nil
}

// Object key layout. Everything belonging to one video or job lives under
// a single prefix so cleanup is a prefix delete.

// SourceKey returns the object key for an uploaded source video
func SourceKey(videoID, filename string) string {
	return fmt.Sprintf("videos/%s/source%s", videoID, filepath.Ext(filename))
}

// ProxyKey returns the object key for a job's low-res working copy
func ProxyKey(jobID string) string {
	return fmt.Sprintf("jobs/%s/proxy.mp4", jobID)
}

// AudioKey returns the object key for a job's extracted audio
func AudioKey(jobID string) string {
	return fmt.Sprintf("jobs/%s/audio.wav", jobID)
}

// OverlayKey returns the object key for a generated overlay image
func OverlayKey(jobID, filename string) string {
	return fmt.Sprintf("jobs/%s/overlays/%s", jobID, filename)
}

// OutputKey returns the object key for the rendered result
func OutputKey(jobID string) string {
	return fmt.Sprintf("jobs/%s/output.mp4", jobID)
}

// ProjectKey returns the object key for a rendered MLT project file
func ProjectKey(jobID, name string) string {
	return fmt.Sprintf("jobs/%s/projects/%s", jobID, name)
}

// Upload uploads a stream to storage
func (s *Storage) Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	start := time.Now()
	_, err := s.client.PutObject(ctx, s.bucketName, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	s.logOp("upload", objectName, size, start, err)
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}

	return nil
}

// Download downloads an object as a stream
func (s *Storage) Download(ctx context.Context, objectName string) (io.ReadCloser, error) {
	object, err := s.client.GetObject(ctx, s.bucketName, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to download object: %w", err)
	}

	return object, nil
}

// UploadFile uploads a file from the local filesystem. Files larger than
// the part size go through a concurrent multipart upload.
func (s *Storage) UploadFile(ctx context.Context, objectName, filePath string) error {
	info, err := os.Stat(filePath)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	opts := minio.PutObjectOptions{ContentType: getContentType(filePath)}
	if info.Size() >= uploadPartSize {
		opts.PartSize = uploadPartSize
		opts.NumThreads = uploadThreads
	}

	start := time.Now()
	_, err = s.client.FPutObject(ctx, s.bucketName, objectName, filePath, opts)
	s.logOp("upload", objectName, info.Size(), start, err)
	if err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}

	return nil
}

// DownloadFile downloads an object to the local filesystem
func (s *Storage) DownloadFile(ctx context.Context, objectName, filePath string) error {
	start := time.Now()
	err := s.client.FGetObject(ctx, s.bucketName, objectName, filePath, minio.GetObjectOptions{})
	s.logOp("download", objectName, 0, start, err)
	if err != nil {
		return fmt.Errorf("failed to download file: %w", err)
	}

	return nil
}

// Delete deletes an object from storage
func (s *Storage) Delete(ctx context.Context, objectName string) error {
	err := s.client.RemoveObject(ctx, s.bucketName, objectName, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}

	return nil
}

// DeletePrefix removes every object under a prefix
func (s *Storage) DeletePrefix(ctx context.Context, prefix string) error {
	objectsCh := make(chan minio.ObjectInfo)

	go func() {
		defer close(objectsCh)
		for object := range s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
			Prefix:    prefix,
			Recursive: true,
		}) {
			if object.Err == nil {
				objectsCh <- object
			}
		}
	}()

	for err := range s.client.RemoveObjects(ctx, s.bucketName, objectsCh, minio.RemoveObjectsOptions{}) {
		if err.Err != nil {
			return fmt.Errorf("failed to delete object %s: %w", err.ObjectName, err.Err)
		}
	}

	return nil
}

// GetURL returns a presigned URL for an object
func (s *Storage) GetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	url, err := s.client.PresignedGetObject(ctx, s.bucketName, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate URL: %w", err)
	}

	return url.String(), nil
}

// List lists objects with a prefix
func (s *Storage) List(ctx context.Context, prefix string) ([]string, error) {
	var objects []string

	for object := range s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", object.Err)
		}
		objects = append(objects, object.Key)
	}

	return objects, nil
}

// Stat returns size and etag for an object
func (s *Storage) Stat(ctx context.Context, objectName string) (int64, string, error) {
	info, err := s.client.StatObject(ctx, s.bucketName, objectName, minio.StatObjectOptions{})
	if err != nil {
		return 0, "", fmt.Errorf("failed to stat object: %w", err)
	}

	return info.Size, info.ETag, nil
}

func (s *Storage) logOp(operation, key string, size int64, start time.Time, err error) {
	if s.logger == nil {
		return
	}
	s.logger.LogStorageOperation(operation, s.bucketName, key, size, time.Since(start), err)
}

// getContentType returns the content type based on file extension
func getContentType(filePath string) string {
	switch filepath.Ext(filePath) {
	case ".mp4":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".mkv":
		return "video/x-matroska"
	case ".webm":
		return "video/webm"
	case ".wav":
		return "audio/wav"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".mlt", ".xml":
		return "application/xml"
	default:
		return "application/octet-stream"
	}
}
