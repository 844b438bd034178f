package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/ironlake-data/catalog/internal/domain"
)

// Permission is the access level requested for a vended credential.
type Permission string

const (
	PermissionRead Permission = "read"
	PermissionReadWriteDelete Permission = "read-write-delete"
)

// TableConfig is what LoadTable/CreateTable returns to the client: the
// non-sensitive config map plus the sensitive, short-lived credential map.
type TableConfig struct {
	Config map[string]string
	Credentials map[string]string
}

// CredentialVendor mints scoped, short-lived storage credentials per
// request.
type CredentialVendor struct {
	// stsFactory builds the STS client on each S3 request; no other
	// provider calls it. The default loads the ambient AWS config.
	stsFactory func(ctx context.Context, profile StorageProfile) (*sts.Client, error)
}

func NewCredentialVendor() *CredentialVendor {
	return &CredentialVendor{stsFactory: defaultSTSFactory}
}

// NewCredentialVendorWithSTSFactory lets a caller substitute the STS client
// used for S3 rather than contacting AWS.
func NewCredentialVendorWithSTSFactory(f func(ctx context.Context, profile StorageProfile) (*sts.Client, error)) *CredentialVendor {
	return &CredentialVendor{stsFactory: f}
}

func defaultSTSFactory(ctx context.Context, profile StorageProfile) (*sts.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(profile.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return sts.NewFromConfig(cfg, func(o *sts.Options) {
		if profile.Endpoint != "" {
			o.BaseEndpoint = &profile.Endpoint
		}
	}), nil
}

// GenerateTableConfig produces the client config and vended credentials for
// one request's worth of access to location. For ProfileS3 it calls
// AssumeRole with an inline policy scoped to location and perm; for
// ProfileLocal it returns fixed fake credentials. For ProfileGCS and
// ProfileAzure it returns only the non-sensitive config and an empty
// credential map: no credentials are vended for them.
func (v *CredentialVendor) GenerateTableConfig(
	ctx context.Context,
	profile StorageProfile,
	secret *domain.Secret,
	location string,
	perm Permission,
) (*TableConfig, error) {
	switch profile.Kind {
	case ProfileS3:
		return v.generateS3(ctx, profile, location, perm)
	case ProfileLocal:
		return &TableConfig{
			Config: map[string]string{
				"io-impl": "local",
			},
			Credentials: map[string]string{
				"local.access-key": "fake-access-key",
				"local.secret-key": "fake-secret-key",
				"local.base-path": profile.BaseLocation,
			},
		}, nil
	case ProfileGCS, ProfileAzure:
		// No credentials are vended for GCS/Azure; only the non-sensitive
		// config is reported, so a client falls back to its ambient
		// credentials.
		return &TableConfig{
			Config: map[string]string{
				"io-impl": string(profile.Kind),
			},
			Credentials: map[string]string{},
		}, nil
	default:
		return nil, fmt.Errorf("generate table config: unsupported provider %q", profile.Kind)
	}
}

func (v *CredentialVendor) generateS3(ctx context.Context, profile StorageProfile, location string, perm Permission) (*TableConfig, error) {
	client, err := v.stsFactory(ctx, profile)
	if err != nil {
		return nil, err
	}

	policy, err := scopedS3Policy(profile.Bucket, location, perm)
	if err != nil {
		return nil, err
	}

	sessionName := fmt.Sprintf("ironlake-%d", time.Now().UnixNano())

	out, err := client.AssumeRole(ctx, &sts.AssumeRoleInput{
		RoleArn: &profile.AssumeRoleARN,
		RoleSessionName: &sessionName,
		Policy: &policy,
		DurationSeconds: durationSeconds(15 * time.Minute),
	})
	if err != nil {
		return nil, domain.BackendUnavailableError{Backend: "s3-sts", Message: "failed to assume scoped role", Err: err}
	}

	creds := out.Credentials
	if creds == nil {
		return nil, domain.InternalInvariantError{Message: "sts AssumeRole returned no credentials"}
	}

	return &TableConfig{
		Config: map[string]string{
			"s3.region": profile.Region,
			"s3.endpoint": profile.Endpoint,
			"s3.path-style-access": fmt.Sprintf("%t", profile.PathStyleAccess),
			"io-impl": "s3",
		},
		Credentials: map[string]string{
			"s3.access-key-id": *creds.AccessKeyId,
			"s3.secret-access-key": *creds.SecretAccessKey,
			"s3.session-token": *creds.SessionToken,
		},
	}, nil
}

func durationSeconds(d time.Duration) *int32 {
	s := int32(d.Seconds())
	return &s
}

func scopedS3Policy(bucket, location string, perm Permission) (string, error) {
	actions := []string{"s3:GetObject", "s3:ListBucket"}
	if perm == PermissionReadWriteDelete {
		actions = append(actions, "s3:PutObject", "s3:DeleteObject")
	}

	doc := map[string]any{
		"Version": "2012-10-17",
		"Statement": []map[string]any{
			{
				"Effect": "Allow",
				"Action": actions,
				"Resource": []string{fmt.Sprintf("arn:aws:s3:::%s/*", bucket)},
				"Condition": map[string]any{
					"StringLike": map[string]string{"s3:prefix": location + "*"},
				},
			},
		},
	}

	b, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}

	return string(b), nil
}
