package lifecycle

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// ComputeETag derives the wire ETag header from a metadata file location.
// Two tabulars pointing at the same metadata file (impossible in practice,
// since locations are content-addressed by sequence+id) would collide; the
// hash is a cheap change-detector, not a content digest.
func ComputeETag(metadataFileLocation string) string {
	return strconv.FormatUint(xxhash.Sum64String(metadataFileLocation), 16)
}
