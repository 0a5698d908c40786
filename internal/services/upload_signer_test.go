package services

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3UploadSigner_PresignUpload(t *testing.T) {
	client := s3.New(s3.Options{
		Region:      "us-east-1",
		Credentials: credentials.NewStaticCredentialsProvider("AKIDEXAMPLE", "secret", ""),
	})
	signer := newS3UploadSigner(client, "blog-uploads", 1000*time.Second)
	signer.now = func() time.Time { return time.UnixMilli(1700000000123) }

	raw, err := signer.PresignUpload(context.Background())
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Contains(t, u.Host+u.Path, "blog-uploads")
	assert.True(t, strings.HasSuffix(u.Path, "_1700000000123.jpeg"), u.Path)
	assert.Equal(t, "1000", u.Query().Get("X-Amz-Expires"))
	assert.Contains(t, u.Query().Get("X-Amz-SignedHeaders"), "content-type")

	again, err := signer.PresignUpload(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, raw, again)
}
