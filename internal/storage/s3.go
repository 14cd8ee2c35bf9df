package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
)

// S3Config descreve um bucket S3 ou compatível (R2, MinIO).
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	PublicURL string
}

func (c S3Config) validate() error {
	if strings.TrimSpace(c.Bucket) == "" {
		return errors.New("storage: S3_BUCKET obrigatório")
	}
	if (c.AccessKey == "") != (c.SecretKey == "") {
		return errors.New("storage: S3_ACCESS_KEY e S3_SECRET_KEY devem ser informados juntos")
	}
	return nil
}

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader envia arquivos com o SDK da AWS. Falhas seguidas abrem o
// circuito e os uploads seguintes falham rápido até o timeout.
type S3Uploader struct {
	cfg     S3Config
	client  putObjectAPI
	breaker *gobreaker.CircuitBreaker[*s3.PutObjectOutput]
}

// NewS3Uploader carrega credenciais e cria o cliente.
func NewS3Uploader(ctx context.Context, cfg S3Config) (*S3Uploader, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

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
		return nil, fmt.Errorf("storage: config aws: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Uploader(cfg, client), nil
}

func newS3Uploader(cfg S3Config, client putObjectAPI) *S3Uploader {
	breaker := gobreaker.NewCircuitBreaker[*s3.PutObjectOutput](gobreaker.Settings{
		Name:        "s3-upload",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("storage: circuito mudou de estado")
		},
	})
	return &S3Uploader{cfg: cfg, client: client, breaker: breaker}
}

// Upload envia o objeto e devolve a URL pública.
func (u *S3Uploader) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	key := strings.TrimLeft(strings.TrimSpace(input.Key), "/")
	if key == "" {
		return nil, errors.New("storage: chave do objeto obrigatória")
	}
	if len(input.Body) == 0 {
		return nil, errors.New("storage: corpo vazio")
	}

	contentType := strings.TrimSpace(input.ContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	put := &s3.PutObjectInput{
		Bucket:        aws.String(u.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(input.Body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(input.Body))),
	}
	if cc := strings.TrimSpace(input.CacheControl); cc != "" {
		put.CacheControl = aws.String(cc)
	}

	out, err := u.breaker.Execute(func() (*s3.PutObjectOutput, error) {
		return u.client.PutObject(ctx, put)
	})
	if err != nil {
		return nil, fmt.Errorf("storage: upload %s: %w", key, err)
	}

	result := &UploadResult{URL: u.publicURL(key)}
	if out != nil && out.ETag != nil {
		result.ETag = strings.Trim(*out.ETag, `"`)
	}
	return result, nil
}

func (u *S3Uploader) publicURL(key string) string {
	escaped := (&url.URL{Path: key}).EscapedPath()
	if base := strings.TrimRight(u.cfg.PublicURL, "/"); base != "" {
		return base + "/" + escaped
	}
	if endpoint := strings.TrimRight(u.cfg.Endpoint, "/"); endpoint != "" {
		return endpoint + "/" + u.cfg.Bucket + "/" + escaped
	}
	region := u.cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.cfg.Bucket, region, escaped)
}
