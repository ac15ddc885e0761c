package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/jhoicas/Trazabilidad-api/internal/application/custody"
	"github.com/jhoicas/Trazabilidad-api/internal/domain"
	"github.com/jhoicas/Trazabilidad-api/pkg/config"
)

var (
	_ custody.EvidenceStore  = (*S3Store)(nil)
	_ custody.EvidenceReader = (*S3Store)(nil)
)

// objectAPI subconjunto del cliente S3 que usa el store.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Store guarda evidencias en un bucket S3 (o compatible, vía Endpoint).
type S3Store struct {
	client objectAPI
	bucket string
	prefix string
	now    func() time.Time
}

// NewS3Store construye el cliente con región, credenciales estáticas opcionales y endpoint opcional.
// Sin AccessKey se usa la cadena de credenciales por defecto de AWS.
func NewS3Store(ctx context.Context, cfg config.S3Config) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("cargar configuración AWS: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3Store(client, cfg.Bucket, cfg.Prefix), nil
}

func newS3Store(client objectAPI, bucket, prefix string) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: strings.TrimPrefix(prefix, "/"), now: time.Now}
}

// Store sube la imagen y devuelve s3://bucket/key.
func (s *S3Store) Store(ctx context.Context, ev custody.Evidence) (string, error) {
	key := objectKey(s.prefix, ev.Filename, s.now())
	contentType := ev.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(ev.Data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(ev.Data))),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put %s: %w", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

// Fetch descarga el objeto de una referencia s3://bucket/key de este bucket.
func (s *S3Store) Fetch(ctx context.Context, ref string) (*custody.Evidence, error) {
	key, ok := strings.CutPrefix(ref, "s3://"+s.bucket+"/")
	if !ok || key == "" {
		return nil, fmt.Errorf("%w: referencia %s fuera del bucket %s", domain.ErrNotFound, ref, s.bucket)
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: evidencia %s", domain.ErrNotFound, ref)
		}
		return nil, fmt.Errorf("s3 get %s: %w", key, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 leer %s: %w", key, err)
	}
	return &custody.Evidence{
		Data:        data,
		ContentType: aws.ToString(out.ContentType),
		Filename:    path.Base(key),
	}, nil
}
