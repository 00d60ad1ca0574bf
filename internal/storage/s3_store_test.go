package storage

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Notifuse/designer/config"
	"github.com/Notifuse/designer/pkg/logger"
)

type fakeUploader struct {
	input *s3manager.UploadInput
	body  []byte
	err   error
}

func (f *fakeUploader) UploadWithContext(_ aws.Context, input *s3manager.UploadInput, _ ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = input
	body, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return &s3manager.UploadOutput{
		Location: "https://bucket.s3.amazonaws.com/" + aws.StringValue(input.Key),
	}, nil
}

func TestS3ArtifactStore_Put(t *testing.T) {
	ctx := context.Background()

	t.Run("BucketLocation", func(t *testing.T) {
		uploader := &fakeUploader{}
		store := NewArtifactStore(uploader, "exports", "", logger.NewTestLogger(t))

		url, err := store.Put(ctx, "templates/welcome/v2/email-template.html", []byte("<html></html>"), "text/html; charset=utf-8")
		require.NoError(t, err)
		assert.Equal(t, "https://bucket.s3.amazonaws.com/templates/welcome/v2/email-template.html", url)

		assert.Equal(t, "exports", aws.StringValue(uploader.input.Bucket))
		assert.Equal(t, "text/html; charset=utf-8", aws.StringValue(uploader.input.ContentType))
		assert.Equal(t, "<html></html>", string(uploader.body))
	})

	t.Run("PublicURL", func(t *testing.T) {
		store := NewArtifactStore(&fakeUploader{}, "exports", "https://cdn.example.com/", logger.NewTestLogger(t))

		url, err := store.Put(ctx, "templates/a/v1/email-template.html", []byte("x"), "text/html")
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/templates/a/v1/email-template.html", url)
	})

	t.Run("UploadError", func(t *testing.T) {
		store := NewArtifactStore(&fakeUploader{err: errors.New("access denied")}, "exports", "", logger.NewTestLogger(t))

		_, err := store.Put(ctx, "k", []byte("x"), "text/html")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "access denied")
	})
}

func TestNewS3ArtifactStore(t *testing.T) {
	_, err := NewS3ArtifactStore(&config.StorageConfig{}, logger.NewTestLogger(t))
	assert.ErrorIs(t, err, ErrBucketRequired)

	store, err := NewS3ArtifactStore(&config.StorageConfig{
		Bucket:         "exports",
		Endpoint:       "http://localhost:9000",
		AccessKey:      "minio",
		SecretKey:      "minio123",
		ForcePathStyle: true,
	}, logger.NewTestLogger(t))
	require.NoError(t, err)
	assert.Equal(t, "exports", store.bucket)
}
