package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Trazabilidad-api/internal/application/custody"
	"github.com/jhoicas/Trazabilidad-api/internal/domain"
)

type fakeS3 struct {
	in      *s3.PutObjectInput
	err     error
	objects map[string][]byte
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	b, _ := io.ReadAll(in.Body)
	f.objects[aws.ToString(in.Key)] = b
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	b, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:        io.NopCloser(bytes.NewReader(b)),
		ContentType: f.in.ContentType,
	}, nil
}

func TestObjectKey(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	k := objectKey("evidence", "foto.JPG", now)
	assert.True(t, strings.HasPrefix(k, "evidence/2024/05/01/"))
	assert.True(t, strings.HasSuffix(k, ".jpg"))

	assert.True(t, strings.HasSuffix(objectKey("", "sin-extension", now), ".bin"))
	assert.NotEqual(t, objectKey("", "a.png", now), objectKey("", "a.png", now), "cada subida usa una clave nueva")
}

func TestS3Store_Store(t *testing.T) {
	fake := &fakeS3{}
	s := newS3Store(fake, "evidencias", "/custody")

	ref, err := s.Store(context.Background(), custody.Evidence{Data: []byte("img"), ContentType: "image/png", Filename: "a.png"})
	require.NoError(t, err)

	require.NotNil(t, fake.in)
	assert.Equal(t, "evidencias", aws.ToString(fake.in.Bucket))
	assert.Equal(t, "image/png", aws.ToString(fake.in.ContentType))
	assert.Equal(t, int64(3), aws.ToInt64(fake.in.ContentLength))
	assert.Equal(t, "s3://evidencias/"+aws.ToString(fake.in.Key), ref)
	assert.True(t, strings.HasPrefix(aws.ToString(fake.in.Key), "custody/"))
}

func TestS3Store_Fetch(t *testing.T) {
	ctx := context.Background()
	s := newS3Store(&fakeS3{}, "evidencias", "custody")

	ref, err := s.Store(ctx, custody.Evidence{Data: []byte("img"), ContentType: "image/png", Filename: "a.png"})
	require.NoError(t, err)

	got, err := s.Fetch(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "img", string(got.Data))
	assert.Equal(t, "image/png", got.ContentType)
	assert.True(t, strings.HasSuffix(got.Filename, ".png"))

	_, err = s.Fetch(ctx, "s3://evidencias/custody/no-existe.png")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.Fetch(ctx, "s3://otro-bucket/"+strings.TrimPrefix(ref, "s3://evidencias/"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestS3Store_ErrorDeSubida(t *testing.T) {
	fake := &fakeS3{err: errors.New("503 slow down")}
	s := newS3Store(fake, "evidencias", "")

	ref, err := s.Store(context.Background(), custody.Evidence{Data: []byte("img"), Filename: "a.png"})
	assert.Error(t, err)
	assert.Empty(t, ref)
	assert.Equal(t, "application/octet-stream", aws.ToString(fake.in.ContentType))
}

func TestLocalStore_StoreYFetch(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir)
	require.NoError(t, err)

	ref, err := s.Store(context.Background(), custody.Evidence{Data: []byte("contenido"), Filename: "x.jpg"})
	require.NoError(t, err)

	b, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(ref)))
	require.NoError(t, err)
	assert.Equal(t, "contenido", string(b))

	got, err := s.Fetch(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, "contenido", string(got.Data))
	assert.Equal(t, "image/jpeg", got.ContentType)

	_, err = s.Fetch(context.Background(), "../fuera.txt")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.Fetch(context.Background(), "2024/01/01/no-existe.jpg")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLocalStore_ContextoCancelado(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.Store(ctx, custody.Evidence{Data: []byte("x")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	data := []byte("abc")
	ref, err := s.Store(context.Background(), custody.Evidence{Data: data, Filename: "a.png"})
	require.NoError(t, err)
	data[0] = 'z'

	got, err := s.Fetch(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got.Data), "el store guarda una copia")
	assert.Equal(t, "a.png", got.Filename)

	_, err = s.Fetch(context.Background(), "mem://no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
