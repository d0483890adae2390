// Package documents serves the demo documents that workflows attach to envelopes.
package documents

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"esign-workflows/internal/common/aws"
	"esign-workflows/internal/common/config"
	"esign-workflows/internal/common/errors"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type Library interface {
	Open(ctx context.Context, name string) ([]byte, error)
}

// New picks the library named by cfg.Source.
func New(ctx context.Context, cfg config.DocumentsConfig) (Library, error) {
	switch cfg.Source {
	case "", "local":
		return NewFSLibrary(cfg.Dir), nil
	case "s3":
		client, err := aws.NewS3Client(ctx, cfg.S3.Region, cfg.S3.Endpoint)
		if err != nil {
			return nil, err
		}
		return NewS3Library(client, cfg.S3.Bucket, cfg.S3.Prefix), nil
	default:
		return nil, fmt.Errorf("unknown document source %q", cfg.Source)
	}
}

func checkName(name string) error {
	if name == "" || strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return errors.NewValidationError(fmt.Sprintf("invalid document name %q", name), "document")
	}
	return nil
}

type FSLibrary struct {
	dir string
}

func NewFSLibrary(dir string) *FSLibrary {
	return &FSLibrary{dir: dir}
}

func (l *FSLibrary) Open(_ context.Context, name string) ([]byte, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(l.dir, name))
	if stderrors.Is(err, fs.ErrNotExist) {
		return nil, errors.NewDocumentNotFoundError(name)
	}
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	return data, nil
}

// ObjectGetter is the part of *s3.Client the library uses.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type S3Library struct {
	client ObjectGetter
	bucket string
	prefix string
}

func NewS3Library(client ObjectGetter, bucket, prefix string) *S3Library {
	return &S3Library{client: client, bucket: bucket, prefix: prefix}
}

func (l *S3Library) Open(ctx context.Context, name string) ([]byte, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	out, err := l.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: awssdk.String(l.bucket),
		Key:    awssdk.String(path.Join(l.prefix, name)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if stderrors.As(err, &noSuchKey) {
			return nil, errors.NewDocumentNotFoundError(name)
		}
		return nil, errors.NewInternalError(fmt.Errorf("get s3://%s/%s: %w", l.bucket, path.Join(l.prefix, name), err))
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	return data, nil
}

var (
	_ Library = (*FSLibrary)(nil)
	_ Library = (*S3Library)(nil)
)
