package domain

import "time"

// SecretKind enumerates the payload shapes a Secret can hold. The catalog
// treats secret payloads as opaque past this point.
type SecretKind string

const (
	SecretKindS3Credentials SecretKind = "s3-credentials"
	SecretKindGCSCredentials SecretKind = "gcs-credentials"
	SecretKindAzureCredentials SecretKind = "azure-credentials"
)

// Secret is opaque to everything but the secret store; it is shared by
// reference and outlives any single warehouse.
type Secret struct {
	ID string
	Kind SecretKind
	Payload map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CacheVersion satisfies catalogstore.Versioned: secrets have no explicit
// version column, so the cache keys freshness off the mutation timestamp
// instead.
func (s Secret) CacheVersion() int64 { return s.UpdatedAt.UnixNano() }
