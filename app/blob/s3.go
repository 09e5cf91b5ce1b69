package blob

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const defaultS3Endpoint = "s3.amazonaws.com"

type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

// S3Store serves s3:// locations from AWS S3 or any S3-compatible endpoint.
type S3Store struct {
	client *minio.Client
}

var _ Store = (*S3Store)(nil)

func NewS3Store(config S3Config) (*S3Store, error) {
	endpoint := config.Endpoint
	if endpoint == "" {
		endpoint = defaultS3Endpoint
	}

	// Without static keys fall back to the environment, the shared
	// credentials file, then the instance role.
	creds := credentials.NewStaticV4(config.AccessKey, config.SecretKey, "")
	if config.AccessKey == "" {
		creds = credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvAWS{},
			&credentials.FileAWSCredentials{},
			&credentials.IAM{Client: &http.Client{Transport: http.DefaultTransport}},
		})
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  creds,
		Secure: config.UseSSL,
		Region: config.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	return &S3Store{client: client}, nil
}

// Open stats the object before returning it so a missing key fails here
// rather than on the first read.
func (s *S3Store) Open(ctx context.Context, loc Location) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, loc.Bucket, loc.Key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", loc, err)
	}

	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, loc)
		}
		return nil, fmt.Errorf("failed to stat object %s: %w", loc, err)
	}

	return obj, nil
}

func (s *S3Store) Put(ctx context.Context, loc Location, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, loc.Bucket, loc.Key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to put object %s: %w", loc, err)
	}
	return nil
}
