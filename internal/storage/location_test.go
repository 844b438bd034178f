package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	got, err := Normalize("S3://Bucket/Path/")

	require.NoError(t, err)
	assert.Equal(t, Location("s3://Bucket/Path"), got)
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal("s3://bucket/path/", "S3://bucket/path"))
	assert.False(t, Equal("s3://bucket/path", "s3://bucket/other"))
}

func TestDefaultTabularLocation(t *testing.T) {
	got, err := DefaultTabularLocation("s3://bucket/warehouse/ns/", "TableId")

	require.NoError(t, err)
	assert.Equal(t, Location("s3://bucket/warehouse/ns/table-id"), got)
}

func TestCodec_Extension(t *testing.T) {
	testCases := []struct {
		codec   Codec
		want    string
		wantErr bool
	}{
		{codec: CodecNone, want: ""},
		{codec: "", want: ""},
		{codec: CodecGzip, want: ".gz"},
		{codec: CodecZstd, want: ".zst"},
		{codec: "bogus", wantErr: true},
	}

	for _, tc := range testCases {
		ext, err := tc.codec.Extension()
		if tc.wantErr {
			assert.Error(t, err)
			continue
		}

		require.NoError(t, err)
		assert.Equal(t, tc.want, ext)
	}
}

func TestParseCodec(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		want    Codec
		wantErr bool
	}{
		{name: "empty defaults to gzip", input: "", want: CodecGzip},
		{name: "explicit gzip", input: "gzip", want: CodecGzip},
		{name: "case insensitive", input: "ZSTD", want: CodecZstd},
		{name: "none", input: "none", want: CodecNone},
		{name: "unsupported", input: "lz4", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseCodec(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDefaultMetadataLocation(t *testing.T) {
	got, err := DefaultMetadataLocation("s3://bucket/warehouse/ns/table", CodecGzip, "abc123", 1)

	require.NoError(t, err)
	assert.Equal(t, Location("s3://bucket/warehouse/ns/table/metadata/00001-abc123.metadata.json.gz"), got)
}

func TestRequireAllowedLocation(t *testing.T) {
	base := "s3://bucket/warehouse"

	assert.NoError(t, RequireAllowedLocation(base, "s3://bucket/warehouse/ns/table"))
	assert.NoError(t, RequireAllowedLocation(base, "s3://bucket/warehouse"))
	assert.Error(t, RequireAllowedLocation(base, "s3://bucket/other/table"))
	assert.Error(t, RequireAllowedLocation(base, "s3://bucket/warehouse-other/table"))
}
