package domain

import "fmt"

// ProfileKind names the supported object-store providers.
type ProfileKind string

const (
	ProfileS3 ProfileKind = "s3"
	ProfileGCS ProfileKind = "gcs"
	ProfileAzure ProfileKind = "azure"
	ProfileLocal ProfileKind = "local" // fake provider, used for tests and single-node deployments
)

// StorageProfile is the validated, warehouse-scoped description of where a
// warehouse's data lives and how to reach it. It lives
// in domain, not storage, because Warehouse embeds it directly and domain
// must not depend on any adapter package.
type StorageProfile struct {
	Kind ProfileKind

	// Bucket/container/root path, provider-specific meaning.
	Bucket string
	// BaseLocation is the warehouse's configured base prefix; every tabular
	// location must be a sub-path of it.
	BaseLocation string

	// S3-specific.
	Region string
	Endpoint string // non-empty for S3-compatible (e.g. MinIO) endpoints
	PathStyleAccess bool
	AssumeRoleARN string

	// GCS-specific.
	GCSProjectID string

	// Azure-specific.
	AzureAccountName string
	AzureContainer string
}

// Validate checks that the profile is internally consistent and usable.
func (p StorageProfile) Validate() error {
	if p.BaseLocation == "" {
		return fmt.Errorf("storage profile: base location is required")
	}

	switch p.Kind {
	case ProfileS3:
		if p.Bucket == "" {
			return fmt.Errorf("storage profile: s3 bucket is required")
		}
	case ProfileGCS:
		if p.Bucket == "" {
			return fmt.Errorf("storage profile: gcs bucket is required")
		}
	case ProfileAzure:
		if p.AzureAccountName == "" || p.AzureContainer == "" {
			return fmt.Errorf("storage profile: azure account and container are required")
		}
	case ProfileLocal:
		// no further requirements; BaseLocation is a filesystem path.
	default:
		return fmt.Errorf("storage profile: unknown kind %q", p.Kind)
	}

	return nil
}

// SupportsSTS reports whether this provider can mint scoped session tokens
// rather than returning the same static credential to every caller.
func (p StorageProfile) SupportsSTS() bool {
	switch p.Kind {
	case ProfileS3, ProfileGCS, ProfileAzure:
		return true
	default:
		return false
	}
}
