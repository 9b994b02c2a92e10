package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/ruteri/ork-registry/interfaces"
)

type S3Config struct {
	Bucket string
	Prefix string
	// Region defaults to us-east-1.
	Region string
	// Endpoint selects an S3-compatible server (minio, localstack) and
	// switches to path-style addressing.
	Endpoint string
	// Without static keys the default AWS credential chain is used.
	AccessKey string
	SecretKey string
}

// S3Backend stores snapshots as private objects <prefix>/<content id>.json.
type S3Backend struct {
	cfg    S3Config
	client *s3.S3
	log    *slog.Logger
}

func NewS3Backend(cfg S3Config, log *slog.Logger) (*S3Backend, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	awsCfg := aws.NewConfig().WithRegion(cfg.Region)
	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint).WithS3ForcePathStyle(true)
	}
	if cfg.AccessKey != "" {
		awsCfg = awsCfg.WithCredentials(credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""))
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("could not create AWS session: %w", err)
	}
	return &S3Backend{cfg: cfg, client: s3.New(sess), log: log}, nil
}

func (b *S3Backend) key(id interfaces.ContentID) string {
	return path.Join(b.cfg.Prefix, id.String()+".json")
}

func (b *S3Backend) Store(ctx context.Context, data []byte) (interfaces.ContentID, error) {
	id := interfaces.ComputeID(data)
	_, err := b.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.cfg.Bucket),
		Key:         aws.String(b.key(id)),
		Body:        bytes.NewReader(data),
		ACL:         aws.String(s3.ObjectCannedACLPrivate),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return id, fmt.Errorf("s3 put %s: %w", b.key(id), err)
	}
	b.log.Debug("Uploaded snapshot", "bucket", b.cfg.Bucket, "key", b.key(id))
	return id, nil
}

func (b *S3Backend) Fetch(ctx context.Context, id interfaces.ContentID) ([]byte, error) {
	out, err := b.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(b.key(id)),
	})
	if isS3NotFound(err) {
		return nil, interfaces.ErrContentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("s3 get %s: %w", b.key(id), err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (b *S3Backend) Ping(ctx context.Context) error {
	_, err := b.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{Bucket: aws.String(b.cfg.Bucket)})
	if err != nil {
		return fmt.Errorf("%w: bucket %s: %v", interfaces.ErrBackendUnavailable, b.cfg.Bucket, err)
	}
	return nil
}

func (b *S3Backend) String() string {
	uri := fmt.Sprintf("s3://%s/%s?region=%s", b.cfg.Bucket, b.cfg.Prefix, b.cfg.Region)
	if b.cfg.Endpoint != "" {
		uri += "&endpoint=" + b.cfg.Endpoint
	}
	return uri
}

func isS3NotFound(err error) bool {
	if err == nil {
		return false
	}
	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) && reqErr.StatusCode() == http.StatusNotFound {
		return true
	}
	var awsErr awserr.Error
	return errors.As(err, &awsErr) && awsErr.Code() == s3.ErrCodeNoSuchKey
}
