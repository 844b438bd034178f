// Package storage implements location normalization, vended-credential
// generation, and metadata file I/O against an abstract object store.
// Provider clients are built per call; the S3 provider uses the AWS SDK v2
// STS client for scoped session tokens and the S3 client for object I/O.
package storage

import "github.com/ironlake-data/catalog/internal/domain"

// StorageProfile and ProfileKind are aliases of the domain types: Warehouse
// embeds StorageProfile directly, so the type must live in domain, but every
// storage-package function is written in terms of these names.
type (
	StorageProfile = domain.StorageProfile
	ProfileKind = domain.ProfileKind
)

const (
	ProfileS3 = domain.ProfileS3
	ProfileGCS = domain.ProfileGCS
	ProfileAzure = domain.ProfileAzure
	ProfileLocal = domain.ProfileLocal
)
