// Package storage сохраняет файлы подтверждений оплаты в S3-совместимом хранилище.
package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Options содержит параметры подключения к хранилищу.
type Options struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// objectPutter: часть клиента S3, используемая хранилищем.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3ProofStore сохраняет подтверждения оплаты в бакет S3.
type S3ProofStore struct {
	client objectPutter
	bucket string
	now    func() time.Time
}

// NewS3ProofStore создаёт хранилище. Если задан Endpoint, используется S3-совместимый
// сервис (R2, MinIO) с адресацией по пути.
func NewS3ProofStore(ctx context.Context, opts Options) (*S3ProofStore, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is not configured")
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(opts.Region),
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load s3 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3ProofStore(client, opts.Bucket), nil
}

func newS3ProofStore(client objectPutter, bucket string) *S3ProofStore {
	return &S3ProofStore{client: client, bucket: bucket, now: time.Now}
}

// SaveDepositProof загружает файл и возвращает ключ объекта вида
// deposit-proofs/<account>/<yyyy>/<mm>/<uuid><ext>.
func (s *S3ProofStore) SaveDepositProof(ctx context.Context, accountID int64, filename string, body io.Reader) (string, error) {
	ext := strings.ToLower(path.Ext(filename))
	key := fmt.Sprintf("deposit-proofs/%d/%s/%s%s", accountID, s.now().UTC().Format("2006/01"), uuid.NewString(), ext)

	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put deposit proof: %w", err)
	}

	return key, nil
}
