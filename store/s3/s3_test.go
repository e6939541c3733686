package s3

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samasrinivas/kafkautomation/store"
)

// fakeS3 implements API over a map with S3's conditional-PUT semantics.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) GetObject(_ context.Context, in *awss3.GetObjectInput, _ ...func(*awss3.Options)) (*awss3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[*in.Key]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NoSuchKey", Message: "The specified key does not exist."}
	}
	return &awss3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *awss3.PutObjectInput, _ ...func(*awss3.Options)) (*awss3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if in.IfNoneMatch != nil {
		if _, ok := f.objects[*in.Key]; ok {
			return nil, &smithy.GenericAPIError{Code: "PreconditionFailed", Message: "At least one of the pre-conditions you specified did not hold"}
		}
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Key] = data
	return &awss3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *awss3.HeadObjectInput, _ ...func(*awss3.Options)) (*awss3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[*in.Key]; !ok {
		return nil, &smithy.GenericAPIError{Code: "NotFound", Message: "Not Found"}
	}
	return &awss3.HeadObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *awss3.DeleteObjectInput, _ ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, *in.Key)
	return &awss3.DeleteObjectOutput{}, nil
}

func newTestStore(t *testing.T) (*Store, *fakeS3) {
	t.Helper()
	fake := newFakeS3()
	s, err := New(context.Background(), Options{Bucket: "catalogs", Prefix: "kafka/", Client: fake})
	require.NoError(t, err)
	return s, fake
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Options{})
	require.Error(t, err)
}

func TestRoundTripWithPrefix(t *testing.T) {
	ctx := context.Background()
	s, fake := newTestStore(t)

	require.NoError(t, s.Write(ctx, "catalogs/dev/kafka-catalog.yaml", []byte("environment: dev\n"), ""))

	// Prefix is applied to the object key.
	_, ok := fake.objects["kafka/catalogs/dev/kafka-catalog.yaml"]
	assert.True(t, ok)

	data, err := s.Read(ctx, "catalogs/dev/kafka-catalog.yaml")
	require.NoError(t, err)
	assert.Equal(t, "environment: dev\n", string(data))
}

func TestReadMissing(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Read(context.Background(), "absent")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreateConditional(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	require.NoError(t, s.Create(ctx, "catalogs/dev/.lock", []byte("run-1"), ""))

	err := s.Create(ctx, "catalogs/dev/.lock", []byte("run-2"), "")
	assert.ErrorIs(t, err, store.ErrKeyExists)

	data, err := s.Read(ctx, "catalogs/dev/.lock")
	require.NoError(t, err)
	assert.Equal(t, "run-1", string(data))
}

func TestDeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	require.NoError(t, s.Create(ctx, "catalogs/dev/.lock", []byte("x"), ""))
	require.NoError(t, s.Delete(ctx, "catalogs/dev/.lock", ""))
	require.NoError(t, s.Delete(ctx, "catalogs/dev/.lock", ""))

	exists, err := s.Exists(ctx, "catalogs/dev/.lock")
	require.NoError(t, err)
	assert.False(t, exists)
}
