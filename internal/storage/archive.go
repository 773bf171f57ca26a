package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	appConfig "github.com/imyashkale/sitebuilder/internal/config"
	"github.com/imyashkale/sitebuilder/internal/logger"
	"github.com/imyashkale/sitebuilder/internal/models"
)

// ErrSnapshotNotFound is returned when no archived snapshot exists at a key
var ErrSnapshotNotFound = errors.New("site snapshot not found")

// ObjectAPI is the subset of the S3 client the archive uses
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Archive stores site snapshots as JSON objects
type S3Archive struct {
	client ObjectAPI
	bucket string
}

// NewS3Archive wraps an existing object client
func NewS3Archive(client ObjectAPI, bucket string) *S3Archive {
	return &S3Archive{client: client, bucket: bucket}
}

// NewS3ArchiveFromConfig builds the S3 client from application config.
// A custom endpoint switches to path-style addressing for S3-compatible stores.
func NewS3ArchiveFromConfig(ctx context.Context, cfg *appConfig.Config) (*S3Archive, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.AWSRegion)}
	if cfg.ArchiveAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.ArchiveAccessKey, cfg.ArchiveSecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.ArchiveEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.ArchiveEndpoint)
			o.UsePathStyle = true
		}
	})

	logger.WithFields(map[string]interface{}{
		"bucket":   cfg.ArchiveBucket,
		"endpoint": cfg.ArchiveEndpoint,
	}).Info("Site archive initialized")

	return NewS3Archive(client, cfg.ArchiveBucket), nil
}

// SnapshotKey returns the object key of a deployment's snapshot
func SnapshotKey(siteID, deploymentID string) string {
	return fmt.Sprintf("sites/%s/%s.json", siteID, deploymentID)
}

// Save writes snapshot under the site and deployment ids and returns its key
func (a *S3Archive) Save(ctx context.Context, siteID, deploymentID string, snapshot models.SiteSnapshot) (string, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("failed to marshal site snapshot: %w", err)
	}

	key := SnapshotKey(siteID, deploymentID)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to store site snapshot: %w", err)
	}

	logger.WithFields(map[string]interface{}{
		"site_id": siteID,
		"key":     key,
		"files":   len(snapshot.Files),
	}).Info("Site snapshot archived")

	return key, nil
}

// Load reads the snapshot stored at key
func (a *S3Archive) Load(ctx context.Context, key string) (models.SiteSnapshot, error) {
	output, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return models.SiteSnapshot{}, ErrSnapshotNotFound
		}
		return models.SiteSnapshot{}, fmt.Errorf("failed to get site snapshot: %w", err)
	}
	defer func() { _ = output.Body.Close() }()

	data, err := io.ReadAll(output.Body)
	if err != nil {
		return models.SiteSnapshot{}, fmt.Errorf("failed to read site snapshot: %w", err)
	}

	var snapshot models.SiteSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return models.SiteSnapshot{}, fmt.Errorf("failed to unmarshal site snapshot: %w", err)
	}

	return snapshot, nil
}
