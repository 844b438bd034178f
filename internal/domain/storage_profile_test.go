package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStorageProfile_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		profile StorageProfile
		wantErr bool
	}{
		{
			name:    "missing base location",
			profile: StorageProfile{Kind: ProfileS3, Bucket: "b"},
			wantErr: true,
		},
		{
			name:    "s3 requires bucket",
			profile: StorageProfile{Kind: ProfileS3, BaseLocation: "s3://x/"},
			wantErr: true,
		},
		{
			name:    "valid s3 profile",
			profile: StorageProfile{Kind: ProfileS3, Bucket: "b", BaseLocation: "s3://b/"},
			wantErr: false,
		},
		{
			name:    "gcs requires bucket",
			profile: StorageProfile{Kind: ProfileGCS, BaseLocation: "gs://x/"},
			wantErr: true,
		},
		{
			name:    "azure requires account and container",
			profile: StorageProfile{Kind: ProfileAzure, BaseLocation: "abfs://x/", AzureAccountName: "acct"},
			wantErr: true,
		},
		{
			name:    "valid azure profile",
			profile: StorageProfile{Kind: ProfileAzure, BaseLocation: "abfs://x/", AzureAccountName: "acct", AzureContainer: "c"},
			wantErr: false,
		},
		{
			name:    "local profile only needs base location",
			profile: StorageProfile{Kind: ProfileLocal, BaseLocation: "/data"},
			wantErr: false,
		},
		{
			name:    "unknown kind",
			profile: StorageProfile{Kind: "unknown", BaseLocation: "/data"},
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.profile.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStorageProfile_SupportsSTS(t *testing.T) {
	assert.True(t, StorageProfile{Kind: ProfileS3}.SupportsSTS())
	assert.True(t, StorageProfile{Kind: ProfileGCS}.SupportsSTS())
	assert.True(t, StorageProfile{Kind: ProfileAzure}.SupportsSTS())
	assert.False(t, StorageProfile{Kind: ProfileLocal}.SupportsSTS())
}
