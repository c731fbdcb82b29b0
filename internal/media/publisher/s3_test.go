package publisher

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type S3Mock struct {
	mock.Mock
	bodies map[string]string
}

func (m *S3Mock) PutObject(ctx context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if params.Body != nil {
		b, _ := io.ReadAll(params.Body)
		if m.bodies == nil {
			m.bodies = make(map[string]string)
		}
		m.bodies[aws.ToString(params.Key)] = string(b)
	}
	args := m.Called(ctx, params)
	if v := args.Get(0); v != nil {
		return v.(*s3.PutObjectOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "master.m3u8")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestPublish_UploadsFile(t *testing.T) {
	m := new(S3Mock)
	p := newS3(m, S3Config{Bucket: "media", Region: "eu-central-1", Logger: zerolog.Nop()})
	local := writeFile(t, "#EXTM3U\n")

	m.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return aws.ToString(in.Bucket) == "media" &&
			aws.ToString(in.Key) == "videos-hls/abc/master.m3u8" &&
			aws.ToString(in.ContentType) == "application/vnd.apple.mpegurl" &&
			aws.ToInt64(in.ContentLength) == int64(len("#EXTM3U\n"))
	})).Return(&s3.PutObjectOutput{}, nil).Once()

	loc, err := p.Publish(context.Background(), "videos-hls/abc/master.m3u8", local, "application/vnd.apple.mpegurl")
	require.NoError(t, err)
	assert.Equal(t, "https://media.s3.eu-central-1.amazonaws.com/videos-hls/abc/master.m3u8", loc)
	assert.Equal(t, "#EXTM3U\n", m.bodies["videos-hls/abc/master.m3u8"])
	m.AssertExpectations(t)
}

func TestPublish_PutError(t *testing.T) {
	m := new(S3Mock)
	p := newS3(m, S3Config{Bucket: "media", Region: "eu-central-1", Logger: zerolog.Nop()})
	local := writeFile(t, "x")

	m.On("PutObject", mock.Anything, mock.Anything).Return(nil, errors.New("AccessDenied")).Once()

	loc, err := p.Publish(context.Background(), "videos-hls/abc/master.m3u8", local, "application/vnd.apple.mpegurl")
	require.Error(t, err)
	assert.Empty(t, loc)
	assert.Contains(t, err.Error(), "AccessDenied")
}

func TestPublish_MissingLocalFile(t *testing.T) {
	m := new(S3Mock)
	p := newS3(m, S3Config{Bucket: "media", Region: "eu-central-1", Logger: zerolog.Nop()})

	_, err := p.Publish(context.Background(), "videos-hls/abc/master.m3u8", "/does/not/exist", "text/plain")
	require.ErrorIs(t, err, os.ErrNotExist)
	m.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything)
}

func TestPublish_EmptyRemotePath(t *testing.T) {
	p := newS3(new(S3Mock), S3Config{Bucket: "media", Region: "eu-central-1"})

	_, err := p.Publish(context.Background(), "", "/tmp/x", "text/plain")
	require.Error(t, err)
}

func TestBaseURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  S3Config
		want string
	}{
		{name: "aws", cfg: S3Config{Bucket: "media", Region: "us-east-1"}, want: "https://media.s3.us-east-1.amazonaws.com"},
		{name: "custom endpoint", cfg: S3Config{Bucket: "media", Region: "us-east-1", Endpoint: "http://minio:9000/"}, want: "http://minio:9000/media"},
		{name: "public base wins", cfg: S3Config{Bucket: "media", Region: "us-east-1", Endpoint: "http://minio:9000", PublicBaseURL: "https://cdn.example.com/"}, want: "https://cdn.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BaseURL(tt.cfg))
		})
	}
}

func TestNewS3_Validation(t *testing.T) {
	_, err := NewS3(context.Background(), S3Config{Region: "us-east-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket is required")

	_, err = NewS3(context.Background(), S3Config{Bucket: "media"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "region is required")
}
