package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"parking_backend/internal/feature/platedetection/usecase"
)

// PutObjectAPI はS3のPutObjectを呼び出すインターフェースです。*s3.Client がこれを満たします。
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Storage はAmazon S3（または互換ストレージ）にアップロードします。
type S3Storage struct {
	api           PutObjectAPI
	bucket        string
	publicBaseURL string
}

var _ usecase.ObjectStorage = (*S3Storage)(nil)

// NewS3Storage はS3Storageの新しいインスタンスを生成します。
// publicBaseURLが空の場合は仮想ホスト形式のURL（https://<bucket>.s3.<region>.amazonaws.com）を使います。
func NewS3Storage(api PutObjectAPI, bucket, publicBaseURL, region string) *S3Storage {
	if publicBaseURL == "" {
		publicBaseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
	return &S3Storage{api: api, bucket: bucket, publicBaseURL: strings.TrimRight(publicBaseURL, "/")}
}

// Upload はオブジェクトを保存し、公開URLを返します。
func (s *S3Storage) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(k),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put %s: %w", k, err)
	}
	return s.publicBaseURL + "/" + k, nil
}
