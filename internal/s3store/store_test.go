package s3store

import (
	"bytes"
	"context"
	"fmt"
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
)

// fakeS3 is an in-memory stand-in for the S3 API slice the store uses.
type fakeS3 struct {
	objects map[string][]byte
	putErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(params.Key)] = body
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, fmt.Errorf("NoSuchKey: %s", aws.ToString(params.Key))
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	prefix := aws.ToString(params.Prefix)
	var keys []string
	for key := range f.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{KeyCount: aws.Int32(int32(len(keys)))}
	for _, key := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(key)})
	}
	return out, nil
}

func TestPutGet(t *testing.T) {
	fake := newFakeS3()
	store := NewWithClient(fake, "covid-data")

	require.NoError(t, store.Put(context.Background(), "raw/test.csv", []byte("a,b\n1,2\n")))

	body, err := store.Get(context.Background(), "raw/test.csv")
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(body))
}

func TestPut_RejectsEmptyBody(t *testing.T) {
	store := NewWithClient(newFakeS3(), "covid-data")
	err := store.Put(context.Background(), "raw/test.csv", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty object")
}

func TestGet_MissingKey(t *testing.T) {
	store := NewWithClient(newFakeS3(), "covid-data")
	_, err := store.Get(context.Background(), "missing")
	require.Error(t, err)
}

func TestList(t *testing.T) {
	fake := newFakeS3()
	fake.objects["raw/vaccinations/daily/2026-08-29/countries"] = []byte("x")
	fake.objects["raw/vaccinations/daily/2026-08-29/us_states"] = []byte("x")
	fake.objects["raw/other/file"] = []byte("x")
	store := NewWithClient(fake, "covid-data")

	keys, err := store.List(context.Background(), "raw/vaccinations/daily/")
	require.NoError(t, err)
	assert.Len(t, keys, 2)
	assert.IsIncreasing(t, keys)
}

func TestDateKey(t *testing.T) {
	date := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "processed/oxford_all/2026-08-29/national", DateKey("processed/oxford_all", date, "national"))
	assert.Equal(t, "processed/oxford_all/2026-08-29/national", DateKey("processed/oxford_all/", date, "national"))
}

func TestVariantKey(t *testing.T) {
	date := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	assert.Equal(t,
		"interim/variants/2026-08-29/B.1.1.7/USA/B.1.1.7_lineage_data.csv",
		VariantKey("interim/variants", date, "B.1.1.7", "USA", false))
	assert.Equal(t,
		"interim/variants/2026-08-29/B.1.1.7/USA/B.1.1.7_lineage_data_country.csv",
		VariantKey("interim/variants", date, "B.1.1.7", "USA", true))
}

func TestFlattenKey(t *testing.T) {
	assert.Equal(t, "USA_B.1.1.7_lineage_data.csv", FlattenKey("interim/variants/2026-08-29/B.1.1.7/USA/B.1.1.7_lineage_data.csv"))
	assert.Equal(t, "single", FlattenKey("single"))
}

func TestLatestPartition_ProbesBackwards(t *testing.T) {
	fake := newFakeS3()
	fake.objects["interim/variants/2026-08-27/B.1.1.7/USA/file.csv"] = []byte("x")
	store := NewWithClient(fake, "covid-data")

	from := time.Date(2026, 8, 29, 3, 0, 0, 0, time.UTC)
	keys, date, err := store.latestPartitionFrom(context.Background(), "interim/variants", from)
	require.NoError(t, err)
	assert.Len(t, keys, 1)
	assert.Equal(t, "2026-08-27", date.Format("2006-01-02"))
}

func TestLatestPartition_NothingInWindow(t *testing.T) {
	fake := newFakeS3()
	// Eleven days back is outside the probe window.
	fake.objects["interim/variants/2026-08-18/file.csv"] = []byte("x")
	store := NewWithClient(fake, "covid-data")

	from := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	_, _, err := store.latestPartitionFrom(context.Background(), "interim/variants", from)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "last 10 days")
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv(EnvAccessKey, "AKIATEST")
	t.Setenv(EnvSecretKey, "secret")
	t.Setenv(EnvBucket, "covid-data")
	t.Setenv("AWS_REGION", "")

	cfg, err := ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "AKIATEST", cfg.AccessKeyID)
	assert.Equal(t, "secret", cfg.SecretAccessKey)
	assert.Equal(t, "covid-data", cfg.Bucket)
	assert.Equal(t, "us-east-1", cfg.Region)
}

func TestConfigFromEnv_MissingVars(t *testing.T) {
	t.Setenv(EnvAccessKey, "")
	t.Setenv(EnvSecretKey, "secret")
	t.Setenv(EnvBucket, "covid-data")

	_, err := ConfigFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvAccessKey)
}
