package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeETag_Deterministic(t *testing.T) {
	a := ComputeETag("s3://bucket/warehouse/ns/table/metadata/00001.metadata.json")
	b := ComputeETag("s3://bucket/warehouse/ns/table/metadata/00001.metadata.json")

	assert.Equal(t, a, b)
	assert.NotEmpty(t, a)
}

func TestComputeETag_DifferentLocationsDiffer(t *testing.T) {
	a := ComputeETag("s3://bucket/warehouse/ns/table/metadata/00001.metadata.json")
	b := ComputeETag("s3://bucket/warehouse/ns/table/metadata/00002.metadata.json")

	assert.NotEqual(t, a, b)
}
