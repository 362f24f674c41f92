package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/encrypter/internal/common"
	"github.com/dmitrijs2005/encrypter/internal/filex"
	"github.com/dmitrijs2005/encrypter/internal/locator"
	"github.com/google/uuid"
)

const s3Scheme = "s3://"

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) s3API {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type S3Config struct {
	Region       string
	RootUser     string
	RootPassword string
	BaseEndpoint string
	Bucket       string
	// SpoolDir holds ciphertext until it is uploaded on Commit.
	SpoolDir string
}

// S3Store keeps blobs in an S3-compatible bucket (AWS, MinIO).
type S3Store struct {
	client   s3API
	bucket   string
	spoolDir string
}

func NewS3Store(ctx context.Context, c S3Config) (*S3Store, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(c.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.RootUser,
			c.RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if c.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(c.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	if _, err := filex.EnsureDir(c.SpoolDir); err != nil {
		return nil, err
	}

	return &S3Store{client: client, bucket: c.Bucket, spoolDir: c.SpoolDir}, nil
}

func storageKey() string {
	d := time.Now().UTC()
	return fmt.Sprintf("blobs/%d/%02d/%02d/%v%s", d.Year(), d.Month(), d.Day(), uuid.New(), blobExt)
}

func (s *S3Store) key(loc string) (string, error) {
	prefix := s3Scheme + s.bucket + "/"
	if !strings.HasPrefix(loc, prefix) || len(loc) == len(prefix) {
		return "", fmt.Errorf("%w: %s", ErrForeignLocator, loc)
	}
	return strings.TrimPrefix(loc, prefix), nil
}

// s3Sink spools to a local temp file and uploads it on Commit.
type s3Sink struct {
	store *S3Store
	key   string
	f     *os.File
	done  bool
}

func (s *S3Store) Create(_ context.Context) (string, locator.Sink, error) {
	f, err := os.CreateTemp(s.spoolDir, filex.TempPrefix+"*")
	if err != nil {
		return "", nil, fmt.Errorf("creating spool file: %w", err)
	}

	key := storageKey()
	return s3Scheme + s.bucket + "/" + key, &s3Sink{store: s, key: key, f: f}, nil
}

func (w *s3Sink) Write(p []byte) (int, error) {
	if w.done {
		return 0, filex.ErrFinished
	}
	return w.f.Write(p)
}

func (w *s3Sink) Commit() error {
	if w.done {
		return filex.ErrFinished
	}
	w.done = true
	defer w.cleanup()

	size, err := w.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if _, err := w.f.Seek(0, io.SeekStart); err != nil {
		return err
	}

	_, err = w.store.client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket:        aws.String(w.store.bucket),
		Key:           aws.String(w.key),
		Body:          w.f,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String("application/octet-stream"),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", w.key, err)
	}
	return nil
}

func (w *s3Sink) Abort() error {
	if w.done {
		return nil
	}
	w.done = true
	w.cleanup()
	return nil
}

func (w *s3Sink) cleanup() {
	_ = w.f.Close()
	_ = os.Remove(w.f.Name())
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf)
}

func (s *S3Store) Open(ctx context.Context, loc string) (io.ReadCloser, error) {
	key, err := s.key(loc)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if isNotFound(err) {
		return nil, fmt.Errorf("blob %s: %w", loc, common.ErrorNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", key, err)
	}
	return out.Body, nil
}

// Remove checks for the object first since S3 deletes are silent about
// missing keys.
func (s *S3Store) Remove(ctx context.Context, loc string) error {
	key, err := s.key(loc)
	if err != nil {
		return err
	}

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if isNotFound(err) {
		return fmt.Errorf("blob %s: %w", loc, common.ErrorNotFound)
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", key, err)
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
