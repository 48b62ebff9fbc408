// utils/r2.go
package utils

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// R2Options configures an R2Uploader. Endpoint overrides the account
// endpoint, which tests point at a local server.
type R2Options struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	CDNBaseURL      string
	Endpoint        string
}

// R2Uploader writes objects to a Cloudflare R2 bucket through the S3 API.
type R2Uploader struct {
	client     *s3.Client
	bucket     string
	cdnBaseURL string
}

func NewR2Uploader(ctx context.Context, opts R2Options) (*R2Uploader, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("R2 bucket name is required")
	}
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", opts.AccountID)
	}
	cdn := strings.TrimRight(opts.CDNBaseURL, "/")
	if cdn == "" {
		cdn = endpoint + "/" + opts.Bucket
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKeyID, opts.AccessKeySecret, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})
	return &R2Uploader{client: client, bucket: opts.Bucket, cdnBaseURL: cdn}, nil
}

// UploadJSON stores body under key and returns its public URL.
func (u *R2Uploader) UploadJSON(ctx context.Context, key string, body []byte) (string, error) {
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to R2: %w", err)
	}
	return fmt.Sprintf("%s/%s", u.cdnBaseURL, key), nil
}
