package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

type SecretsManagerService struct {
	client *secretsmanager.Client
}

// RegistrySecret is the JSON shape of the registry credential secret stored
// under dt-deployer/{env}/secrets.
type RegistrySecret struct {
	Username string `json:"docker_user"`
	Password string `json:"docker_pass"`
}

type GitHubPATSecret struct {
	GitHubPAT string `json:"github_pat"`
}

func NewSecretsManagerService() (*SecretsManagerService, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SecretsManagerService{
		client: secretsmanager.NewFromConfig(cfg),
	}, nil
}

// NewSecretsManagerServiceWithClient creates a service with a custom client.
// This is useful for testing.
func NewSecretsManagerServiceWithClient(client *secretsmanager.Client) *SecretsManagerService {
	return &SecretsManagerService{client: client}
}

// RegistrySecretName returns the secret path holding registry credentials
// for an environment.
func RegistrySecretName(env string) string {
	return fmt.Sprintf("dt-deployer/%s/secrets", env)
}

// GetSecret retrieves a secret value by path from AWS Secrets Manager
func (s *SecretsManagerService) GetSecret(ctx context.Context, secretPath string) (string, error) {
	result, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretPath),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get secret %s: %w", secretPath, err)
	}

	if result.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", secretPath)
	}

	return *result.SecretString, nil
}

// GetRegistrySecret retrieves registry credentials for an environment from
// AWS Secrets Manager
func (s *SecretsManagerService) GetRegistrySecret(ctx context.Context, env string) (*RegistrySecret, error) {
	secretName := RegistrySecretName(env)

	raw, err := s.GetSecret(ctx, secretName)
	if err != nil {
		return nil, err
	}

	var secret RegistrySecret
	if err := json.Unmarshal([]byte(raw), &secret); err != nil {
		return nil, fmt.Errorf("failed to unmarshal registry secret: %w", err)
	}

	if secret.Username == "" || secret.Password == "" {
		return nil, fmt.Errorf("docker_user or docker_pass is empty in secret %s", secretName)
	}

	return &secret, nil
}

// GetGitHubPAT retrieves a GitHub PAT token from AWS Secrets Manager
func (s *SecretsManagerService) GetGitHubPAT(ctx context.Context, secretPath string) (string, error) {
	raw, err := s.GetSecret(ctx, secretPath)
	if err != nil {
		return "", err
	}

	var patSecret GitHubPATSecret
	if err := json.Unmarshal([]byte(raw), &patSecret); err != nil {
		return "", fmt.Errorf("failed to unmarshal GitHub PAT secret: %w", err)
	}

	if patSecret.GitHubPAT == "" {
		return "", fmt.Errorf("github_pat field is empty in secret %s", secretPath)
	}

	return patSecret.GitHubPAT, nil
}
