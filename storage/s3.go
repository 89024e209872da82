package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"avokati-backend/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Library serves the law library from an S3 bucket
type S3Library struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Library creates a new S3-backed library source
func NewS3Library(cfg config.LibraryConfig) (*S3Library, error) {
	ctx := context.Background()

	var awsCfg aws.Config
	var err error

	if cfg.AWSAccessKey != "" && cfg.AWSSecretKey != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.S3Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AWSAccessKey,
				cfg.AWSSecretKey,
				"",
			)),
		)
	} else {
		// Default credential chain (environment, IAM role, etc.)
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.S3Region),
		)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3Library{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.S3Bucket,
		prefix: cfg.S3Prefix,
	}, nil
}

// List returns the PDF objects under the given prefix
func (l *S3Library) List(ctx context.Context, prefix string) ([]Object, error) {
	fullPrefix := l.prefix
	if prefix != "" {
		fullPrefix = strings.TrimSuffix(l.prefix, "/") + "/" + prefix
		if l.prefix == "" {
			fullPrefix = prefix
		}
	}

	var objects []Object
	paginator := s3.NewListObjectsV2Paginator(l.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(l.bucket),
		Prefix: aws.String(fullPrefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list bucket: %w", err)
		}
		for _, item := range page.Contents {
			name := aws.ToString(item.Key)
			if !isPDF(name) {
				continue
			}
			objects = append(objects, Object{
				Name:    name,
				Size:    aws.ToInt64(item.Size),
				Updated: aws.ToTime(item.LastModified),
			})
		}
	}

	return objects, nil
}

// Fetch downloads an object's content by name
func (l *S3Library) Fetch(ctx context.Context, name string) ([]byte, error) {
	result, err := l.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", name, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}
