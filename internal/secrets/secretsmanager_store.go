package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"

	"github.com/ironlake-data/catalog/internal/domain"
)

// SecretsManagerStore is the alternative Store backend for deployments that
// keep storage credentials in AWS Secrets Manager rather than the bundled
// mongo collection, built on aws-sdk-go-v2's service/secretsmanager. Secret
// ids map directly to Secrets Manager secret names, namespaced by Prefix to
// keep the catalog's secrets apart from anything else sharing the account.
type SecretsManagerStore struct {
	client *secretsmanager.Client
	prefix string
}

// NewSecretsManagerStore builds a store against ambient AWS credentials
// (the same awsconfig.LoadDefaultConfig idiom as storage.CredentialVendor).
func NewSecretsManagerStore(ctx context.Context, region, prefix string) (*SecretsManagerStore, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &SecretsManagerStore{
		client: secretsmanager.NewFromConfig(cfg),
		prefix: prefix,
	}, nil
}

// secretEnvelope is the JSON shape stored as the secret's SecretString;
// Secrets Manager has no structured-payload concept of its own.
type secretEnvelope struct {
	Kind    string            `json:"kind"`
	Payload map[string]string `json:"payload"`
}

func (s *SecretsManagerStore) name(id string) string {
	if s.prefix == "" {
		return id
	}

	return s.prefix + "/" + id
}

// Get fetches a secret's current value. CreatedAt/UpdatedAt come from
// Secrets Manager's own CreatedDate/LastChangedDate rather than anything
// stored in the envelope, since Secrets Manager tracks those natively.
func (s *SecretsManagerStore) Get(ctx context.Context, id string) (*domain.Secret, error) {
	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: strPtr(s.name(id)),
	})
	if err != nil {
		var notFound *smtypes.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return nil, domain.NotFoundError{EntityType: "Secret", Message: "secret not found"}
		}

		return nil, domain.BackendUnavailableError{Backend: "secretsmanager", Message: "get secret value", Err: err}
	}

	var env secretEnvelope
	if out.SecretString == nil {
		return nil, domain.InternalInvariantError{Message: "secret has no string value"}
	}

	if err := json.Unmarshal([]byte(*out.SecretString), &env); err != nil {
		return nil, domain.InternalInvariantError{Message: "corrupt secret envelope json", Err: err}
	}

	secret := &domain.Secret{
		ID:      id,
		Kind:    domain.SecretKind(env.Kind),
		Payload: env.Payload,
	}

	if out.CreatedDate != nil {
		secret.CreatedAt = *out.CreatedDate
		secret.UpdatedAt = *out.CreatedDate
	}

	desc, err := s.client.DescribeSecret(ctx, &secretsmanager.DescribeSecretInput{SecretId: strPtr(s.name(id))})
	if err == nil && desc.LastChangedDate != nil {
		secret.UpdatedAt = *desc.LastChangedDate
	}

	return secret, nil
}

// Put creates the secret on first write and pushes a new version on every
// subsequent write, mirroring Secrets Manager's own versioning model.
func (s *SecretsManagerStore) Put(ctx context.Context, secret *domain.Secret) error {
	raw, err := json.Marshal(secretEnvelope{Kind: string(secret.Kind), Payload: secret.Payload})
	if err != nil {
		return domain.InternalInvariantError{Message: "marshal secret envelope", Err: err}
	}

	name := s.name(secret.ID)
	secretString := string(raw)

	_, err = s.client.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
		SecretId:     strPtr(name),
		SecretString: &secretString,
	})
	if err == nil {
		secret.UpdatedAt = time.Now().UTC()
		return nil
	}

	var notFound *smtypes.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return domain.BackendUnavailableError{Backend: "secretsmanager", Message: "put secret value", Err: err}
	}

	if _, err := s.client.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         strPtr(name),
		SecretString: &secretString,
	}); err != nil {
		return domain.BackendUnavailableError{Backend: "secretsmanager", Message: "create secret", Err: err}
	}

	now := time.Now().UTC()
	secret.CreatedAt, secret.UpdatedAt = now, now

	return nil
}

// Delete schedules the secret for deletion without a recovery window,
// since a catalog secret reference once removed has no legitimate use for
// Secrets Manager's default 30-day recovery grace period.
func (s *SecretsManagerStore) Delete(ctx context.Context, id string) error {
	_, err := s.client.DeleteSecret(ctx, &secretsmanager.DeleteSecretInput{
		SecretId:                   strPtr(s.name(id)),
		ForceDeleteWithoutRecovery: boolPtr(true),
	})
	if err != nil {
		var notFound *smtypes.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return domain.NotFoundError{EntityType: "Secret", Message: "secret not found"}
		}

		return domain.BackendUnavailableError{Backend: "secretsmanager", Message: "delete secret", Err: err}
	}

	return nil
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
