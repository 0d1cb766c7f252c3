package r2

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"quizify/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// Client archives generated quizzes in a Cloudflare R2 bucket.
type Client struct {
	s3Client   *s3.Client
	bucketName string
	publicURL  string // e.g. https://pub-xxxxxxxx.r2.dev
	now        func() time.Time
}

// NewClient returns (nil, nil) when archiving is not configured so callers
// can run with archiving disabled.
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	if !cfg.ArchiveEnabled() {
		config.WithContext(ctx).Warn("R2 archive not fully configured (CLOUDFLARE_ACCOUNT_ID, R2_BUCKET_NAME, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY, R2_PUBLIC_URL). Quizzes will not be archived.")
		return nil, nil
	}
	archive := cfg.Archive

	// R2 endpoint format: https://<ACCOUNT_ID>.r2.cloudflarestorage.com
	r2Resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: fmt.Sprintf("https://%s.r2.cloudflarestorage.com", archive.AccountID),
		}, nil
	})

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithEndpointResolverWithOptions(r2Resolver),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(archive.AccessKeyID, archive.SecretAccessKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config for R2: %w", err)
	}

	config.WithContext(ctx).Infof("R2 archive initialized for bucket '%s'", archive.Bucket)
	return &Client{
		s3Client:   s3.NewFromConfig(awsCfg),
		bucketName: archive.Bucket,
		publicURL:  archive.PublicURL,
		now:        time.Now,
	}, nil
}

// UploadQuiz stores content under quizzes/<yyyy>/<mm>/<id>/<filename> and
// returns its public URL.
func (c *Client) UploadQuiz(ctx context.Context, id uuid.UUID, filename string, content io.Reader) (string, error) {
	if c == nil || c.s3Client == nil {
		return "", fmt.Errorf("R2 client not initialized, skipping upload")
	}

	key, err := objectKey(c.now(), id, filename)
	if err != nil {
		return "", err
	}
	_, err = c.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(c.bucketName),
		Key:                aws.String(key),
		Body:               content,
		ACL:                types.ObjectCannedACLPublicRead,
		ContentType:        aws.String("text/csv; charset=utf-8"),
		ContentDisposition: aws.String(fmt.Sprintf("attachment; filename=%q", filename)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload quiz to R2 (key: %s): %w", key, err)
	}

	publicFileURL, err := publicURL(c.publicURL, key)
	if err != nil {
		return "", err
	}
	config.WithContext(ctx).Infof("Archived quiz to R2: %s", publicFileURL)
	return publicFileURL, nil
}

// objectKey only accepts a bare file name so the key stays under the
// quizzes/ prefix.
func objectKey(t time.Time, id uuid.UUID, filename string) (string, error) {
	if id == uuid.Nil {
		return "", fmt.Errorf("archive id is required")
	}
	if filename == "" || filename == "." || filename == ".." || strings.ContainsAny(filename, `/\`) {
		return "", fmt.Errorf("invalid archive file name %q", filename)
	}
	return path.Join("quizzes", t.UTC().Format("2006/01"), id.String(), filename), nil
}

func publicURL(base, key string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid R2 public base URL %q: %w", base, err)
	}
	baseURL.Path = path.Join("/", baseURL.Path, key)
	return baseURL.String(), nil
}
