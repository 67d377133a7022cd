package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/GTDGit/pricewatch_api/internal/config"
)

type fakeGetter struct {
	body  []byte
	err   error
	input *s3.GetObjectInput
}

func (g *fakeGetter) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	g.input = in
	if g.err != nil {
		return nil, g.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(g.body))}, nil
}

func TestParseS3URI(t *testing.T) {
	bucket, key, err := ParseS3URI("s3://feeds/2024/shop.json")
	require.NoError(t, err)
	assert.Equal(t, "feeds", bucket)
	assert.Equal(t, "2024/shop.json", key)

	for _, bad := range []string{"feeds/shop.json", "s3://feeds", "s3:///shop.json"} {
		_, _, err := ParseS3URI(bad)
		assert.Error(t, err, bad)
	}
}

func TestFeedService_LoadFromS3WithCharset(t *testing.T) {
	encoded, err := charmap.Windows1250.NewEncoder().String(`[{"product_code":"PC","online_mag":"shop","name":"Žluťoučký kůň","price":1}]`)
	require.NoError(t, err)

	getter := &fakeGetter{body: []byte(encoded)}
	svc := NewFeedServiceWith(getter, charmap.Windows1250)

	items, err := svc.Load(context.Background(), "s3://feeds/shop.json")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Žluťoučký kůň", items[0].Name)
	assert.Equal(t, "feeds", aws.ToString(getter.input.Bucket))
	assert.Equal(t, "shop.json", aws.ToString(getter.input.Key))
}

func TestFeedService_S3Error(t *testing.T) {
	svc := NewFeedServiceWith(&fakeGetter{err: errors.New("access denied")}, nil)
	_, err := svc.Load(context.Background(), "s3://feeds/shop.json")
	assert.ErrorContains(t, err, "access denied")
}

func TestFeedService_LoadLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"product_code":"PC","online_mag":"shop","name":"Phone","price":2}]`), 0o600))

	svc := NewFeedServiceWith(nil, nil)
	items, err := svc.Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Phone", items[0].Name)

	_, err = svc.Load(context.Background(), "s3://feeds/x.json")
	assert.ErrorContains(t, err, "not configured")
}

func TestNewFeedService_UnknownCharset(t *testing.T) {
	_, err := NewFeedService(context.Background(), &config.FeedConfig{Charset: "klingon"})
	assert.ErrorContains(t, err, "unsupported feed charset")
}

func TestNewFeedService_NilConfig(t *testing.T) {
	_, err := NewFeedService(context.Background(), nil)
	assert.Error(t, err)
}
