package blob

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratabase/borecore/internal/fault"
)

// fakeS3 is an in-memory stand-in for the SDK client, paging like S3 does.
type fakeS3 struct {
	objs     map[string][]byte
	pageSize int
}

func newFakeS3() *fakeS3 { return &fakeS3{objs: map[string][]byte{}, pageSize: 2} }

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	var keys []string
	for k := range f.objs {
		if in.Prefix == nil || strings.HasPrefix(k, *in.Prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	start := 0
	if in.ContinuationToken != nil {
		for i, k := range keys {
			if k > *in.ContinuationToken {
				start = i
				break
			}
		}
	}
	end := start + f.pageSize
	if in.MaxKeys != nil && int(*in.MaxKeys) < f.pageSize {
		end = start + int(*in.MaxKeys)
	}
	if end > len(keys) {
		end = len(keys)
	}

	out := &s3.ListObjectsV2Output{}
	now := time.Now()
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(k),
			Size:         aws.Int64(int64(len(f.objs[k]))),
			LastModified: &now,
		})
	}
	if end < len(keys) {
		out.NextContinuationToken = aws.String(keys[end-1])
	}
	return out, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	b, ok := f.objs[*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objs[*in.Key] = b
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if _, ok := f.objs[*in.Key]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objs, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func newS3Store(t *testing.T) (*S3, *fakeS3) {
	t.Helper()
	fake := newFakeS3()
	return &S3{client: fake, bucket: "test-bucket"}, fake
}

func TestS3_PutGetExistsDelete(t *testing.T) {
	s, _ := newS3Store(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "projects/p1/project.json", []byte("{}"), ContentTypeJSON))

	b, err := s.Get(ctx, "projects/p1/project.json")
	require.NoError(t, err)
	assert.Equal(t, "{}", string(b))

	ok, err := s.Exists(ctx, "projects/p1/project.json")
	require.NoError(t, err)
	assert.True(t, ok)

	deleted, err := s.Delete(ctx, "projects/p1/project.json")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.Delete(ctx, "projects/p1/project.json")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestS3_GetMissingIsNotFound(t *testing.T) {
	s, _ := newS3Store(t)
	_, err := s.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, fault.IsNotFound(err))
}

func TestS3_ListPagesThroughContinuationTokens(t *testing.T) {
	s, fake := newS3Store(t)
	ctx := context.Background()
	keys := []string{"p/a", "p/b", "p/c", "p/d", "p/e", "q/x"}
	for _, k := range keys {
		fake.objs[k] = []byte("v")
	}

	infos, err := s.List(ctx, "p/", 0)
	require.NoError(t, err)
	require.Len(t, infos, 5)
	assert.Equal(t, "p/a", infos[0].Key)
	assert.Equal(t, "p/e", infos[4].Key)
}

func TestS3_ListHonorsMax(t *testing.T) {
	s, fake := newS3Store(t)
	for _, k := range []string{"p/a", "p/b", "p/c"} {
		fake.objs[k] = []byte("v")
	}
	infos, err := s.List(context.Background(), "p/", 2)
	require.NoError(t, err)
	assert.Len(t, infos, 2)
}

func TestNewS3_RequiresBucket(t *testing.T) {
	_, err := NewS3(context.Background(), S3Config{})
	assert.Error(t, err)
}
