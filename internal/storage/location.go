package storage

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/iancoleman/strcase"
)

// Location is a normalized object-store location: scheme + authority + path,
// with no trailing slash.
type Location string

// Normalize lowercases the scheme, strips a trailing slash, and leaves
// authority/path untouched (case matters there for most providers).
func Normalize(raw string) (Location, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid location %q: %w", raw, err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Path = strings.TrimSuffix(u.Path, "/")

	return Location(u.String()), nil
}

// Equal compares two locations on their normalized form.
func Equal(a, b string) bool {
	na, errA := Normalize(a)
	nb, errB := Normalize(b)

	if errA != nil || errB != nil {
		return a == b
	}

	return na == nb
}

func urlSafeSegment(id string) string {
	return strcase.ToKebab(id)
}

// DefaultTabularLocation derives the sub-path a newly created table or view
// lives under, appending a URL-safe tabular-id segment and stripping any
// trailing slash from the result.
func DefaultTabularLocation(namespaceLocation, tabularID string) (Location, error) {
	base, err := Normalize(namespaceLocation)
	if err != nil {
		return "", err
	}

	return Location(strings.TrimSuffix(string(base), "/") + "/" + urlSafeSegment(tabularID)), nil
}

// Codec is the compression codec applied to a written metadata file.
type Codec string

const (
	CodecNone Codec = "none"
	CodecGzip Codec = "gzip"
	CodecZstd Codec = "zstd"
)

// Extension returns the codec-appropriate filename suffix.
func (c Codec) Extension() (string, error) {
	switch c {
	case CodecNone, "":
		return "", nil
	case CodecGzip:
		return ".gz", nil
	case CodecZstd:
		return ".zst", nil
	default:
		return "", fmt.Errorf("unknown metadata compression codec %q", c)
	}
}

// ParseCodec reads the `write.metadata.compression-codec` table property,
// defaulting to gzip when the property is unset.
func ParseCodec(property string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(property)) {
	case "", "gzip":
		return CodecGzip, nil
	case "none":
		return CodecNone, nil
	case "zstd":
		return CodecZstd, nil
	default:
		return "", fmt.Errorf("unsupported compression codec %q", property)
	}
}

// DefaultMetadataLocation returns
// {table_location}/metadata/{sequence:05}-{metadata_id}.metadata.json[.gz|.zst].
func DefaultMetadataLocation(tableLocation string, codec Codec, metadataID string, sequence int) (Location, error) {
	base, err := Normalize(tableLocation)
	if err != nil {
		return "", err
	}

	ext, err := codec.Extension()
	if err != nil {
		return "", err
	}

	return Location(fmt.Sprintf("%s/metadata/%05d-%s.metadata.json%s", base, sequence, metadataID, ext)), nil
}

// RequireAllowedLocation rejects a location that is not a sub-path of the
// warehouse's configured base.
func RequireAllowedLocation(base, candidate string) error {
	nb, err := Normalize(base)
	if err != nil {
		return err
	}

	nc, err := Normalize(candidate)
	if err != nil {
		return err
	}

	if nc != nb && !strings.HasPrefix(string(nc), string(nb)+"/") {
		return fmt.Errorf("location %q is outside the warehouse base location %q", candidate, base)
	}

	return nil
}
