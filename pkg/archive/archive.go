// Package archive uploads closed ICF containers to S3-compatible storage.
package archive

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/dd0wney/icf/pkg/config"
	"github.com/dd0wney/icf/pkg/icf"
	"github.com/dd0wney/icf/pkg/logging"
)

// Object metadata keys.
const (
	MetaRecords = "icf-records"
	MetaCreated = "icf-created"
	MetaFormat  = "icf-format"
	MetaDigest  = "icf-blake2b-256"
)

// Client is the subset of the S3 API the archiver needs.
type Client interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archiver uploads containers under bucket/prefix/<uuid>.icf.
type Archiver struct {
	client Client
	bucket string
	prefix string
	logger logging.Logger
	newID  func() string
}

// Result describes an uploaded container.
type Result struct {
	Bucket  string
	Key     string
	Size    int64
	Records uint64
	Created time.Time
	Digest  string // hex BLAKE2b-256 of the file
}

// New builds an archiver backed by the AWS SDK. Credentials come from cfg
// when both key fields are set, otherwise from the default chain.
func New(ctx context.Context, cfg config.ArchiveConfig, logger logging.Logger) (*Archiver, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, fmt.Errorf("invalid archive configuration: missing bucket or region")
	}

	awsConfig, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
			o.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
		}
	})

	return NewWithClient(client, cfg.Bucket, cfg.Prefix, logger), nil
}

// NewWithClient builds an archiver around an existing client.
func NewWithClient(client Client, bucket, prefix string, logger logging.Logger) *Archiver {
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	return &Archiver{
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: logger.With(logging.Component("archive")),
		newID:  uuid.NewString,
	}
}

// ObjectKey returns the key a container with the given id is stored under.
func (a *Archiver) ObjectKey(id string) string {
	return path.Join(a.prefix, id+".icf")
}

// Upload verifies that file is a readable container and uploads it.
func (a *Archiver) Upload(ctx context.Context, file string) (*Result, error) {
	start := time.Now()

	c, err := icf.Open(file, icf.ModeRead, icf.WithReadOnly(), icf.WithLogger(a.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to open container: %w", err)
	}
	stats := c.Stats()
	created := c.Timestamp()
	format := c.Format()
	if err := c.Close(); err != nil {
		return nil, fmt.Errorf("failed to close container: %w", err)
	}

	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open container file: %w", err)
	}
	defer f.Close()

	digest, size, err := fileDigest(f)
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind container file: %w", err)
	}

	key := a.ObjectKey(a.newID())
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String("application/octet-stream"),
		Metadata: map[string]string{
			MetaRecords: strconv.FormatUint(stats.Records, 10),
			MetaCreated: created.UTC().Format(time.RFC3339),
			MetaFormat:  format.String(),
			MetaDigest:  digest,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s to s3://%s/%s: %w", file, a.bucket, key, err)
	}

	a.logger.Info("container archived",
		logging.Path(file),
		logging.String("bucket", a.bucket),
		logging.String("key", key),
		logging.Records(stats.Records),
		logging.Bytes(size),
		logging.Latency(time.Since(start)))

	return &Result{
		Bucket:  a.bucket,
		Key:     key,
		Size:    size,
		Records: stats.Records,
		Created: created,
		Digest:  digest,
	}, nil
}

func fileDigest(r io.Reader) (string, int64, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", 0, err
	}
	n, err := io.Copy(h, r)
	if err != nil {
		return "", 0, fmt.Errorf("failed to hash container file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
