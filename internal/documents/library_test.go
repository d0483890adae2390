package documents

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"esign-workflows/internal/common/config"
	"esign-workflows/internal/common/errors"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestFSLibrary(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "World_Wide_Corp_lorem.html"), []byte("<p>/sn1/</p>"), 0o644))
	lib := NewFSLibrary(dir)

	data, err := lib.Open(context.Background(), "World_Wide_Corp_lorem.html")
	require.NoError(t, err)
	assert.Equal(t, "<p>/sn1/</p>", string(data))

	_, err = lib.Open(context.Background(), "missing.pdf")
	assert.True(t, errors.HasCode(err, errors.ErrCodeDocumentNotFound))

	for _, name := range []string{"", "../etc/passwd", "sub/doc.pdf", `..\x`} {
		_, err = lib.Open(context.Background(), name)
		assert.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed), "name %q", name)
	}
}

type MockGetter struct {
	mock.Mock
}

func (m *MockGetter) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.GetObjectOutput), args.Error(1)
}

func keyIs(key string) interface{} {
	return mock.MatchedBy(func(in *s3.GetObjectInput) bool {
		return *in.Bucket == "docs" && *in.Key == key
	})
}

func TestS3Library(t *testing.T) {
	getter := new(MockGetter)
	getter.On("GetObject", mock.Anything, keyIs("demo/My_Own_Doc.html")).
		Return(&s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader("<html/>"))}, nil).Once()
	getter.On("GetObject", mock.Anything, keyIs("demo/gone.html")).
		Return(nil, &types.NoSuchKey{}).Once()

	lib := NewS3Library(getter, "docs", "demo")

	data, err := lib.Open(context.Background(), "My_Own_Doc.html")
	require.NoError(t, err)
	assert.Equal(t, "<html/>", string(data))

	_, err = lib.Open(context.Background(), "gone.html")
	assert.True(t, errors.HasCode(err, errors.ErrCodeDocumentNotFound))

	getter.AssertExpectations(t)
}

func TestNew_Local(t *testing.T) {
	lib, err := New(context.Background(), config.DocumentsConfig{Source: "local", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FSLibrary{}, lib)

	_, err = New(context.Background(), config.DocumentsConfig{Source: "ftp"})
	assert.Error(t, err)
}
