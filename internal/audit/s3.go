package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"

	"asset-ledger/internal/models"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectPutter es el subconjunto del cliente S3 que usa el sink
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config parámetros de construcción; Endpoint y PathStyle permiten usar MinIO
type S3Config struct {
	Region    string
	Bucket    string
	Endpoint  string
	Prefix    string
	PathStyle bool
}

// S3Sink archiva cada entrada como un objeto JSON inmutable
type S3Sink struct {
	client ObjectPutter
	bucket string
	prefix string
}

// NewS3Sink crea el cliente con la cadena de credenciales por defecto de AWS
func NewS3Sink(ctx context.Context, cfg S3Config) (*S3Sink, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required for audit sink")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return NewS3SinkWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

func NewS3SinkWithClient(client ObjectPutter, bucket, prefix string) *S3Sink {
	if prefix == "" {
		prefix = "audit"
	}
	return &S3Sink{client: client, bucket: bucket, prefix: prefix}
}

// Key arma la clave <prefix>/YYYY/MM/DD/<id>.json
func (s *S3Sink) Key(entry *models.AuditLog) string {
	ts := entry.Timestamp.UTC()
	return path.Join(s.prefix, ts.Format("2006"), ts.Format("01"), ts.Format("02"), entry.ID+".json")
}

func (s *S3Sink) Write(ctx context.Context, entry *models.AuditLog) error {
	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.Key(entry)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"action":        string(entry.Action),
			"resource-type": string(entry.ResourceType),
			"resource-id":   entry.ResourceID,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to put audit object: %w", err)
	}
	return nil
}

func (s *S3Sink) Name() string { return "s3" }
