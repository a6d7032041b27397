// internal/common/aws/secrets.go
package aws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretsAPI is the subset of the Secrets Manager client used here.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// DatabaseCredentials is the JSON document stored in the database secret.
type DatabaseCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type SecretsClient struct {
	client SecretsAPI
}

func NewSecretsClient(cfg sdkaws.Config) *SecretsClient {
	return &SecretsClient{client: secretsmanager.NewFromConfig(cfg)}
}

// NewSecretsClientWithAPI wraps an existing API implementation.
func NewSecretsClientWithAPI(api SecretsAPI) *SecretsClient {
	return &SecretsClient{client: api}
}

// DatabaseCredentials fetches and decodes the secret identified by arn.
func (s *SecretsClient) DatabaseCredentials(ctx context.Context, arn string) (DatabaseCredentials, error) {
	var creds DatabaseCredentials

	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: sdkaws.String(arn),
	})
	if err != nil {
		return creds, fmt.Errorf("failed to get secret %s: %w", arn, err)
	}
	if out.SecretString == nil {
		return creds, fmt.Errorf("secret %s has no string value", arn)
	}
	if err := json.Unmarshal([]byte(*out.SecretString), &creds); err != nil {
		return creds, fmt.Errorf("failed to decode secret %s: %w", arn, err)
	}
	if creds.Username == "" || creds.Password == "" {
		return creds, errors.New("database secret is missing username or password")
	}
	return creds, nil
}
