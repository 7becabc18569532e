package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/aws/aws-sdk-go-v2/service/ecr/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
)

type ECRService struct {
	client    *ecr.Client
	stsClient *sts.Client
	region    string
}

func NewECRService(ctx context.Context, region string) (*ECRService, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &ECRService{
		client:    ecr.NewFromConfig(cfg),
		stsClient: sts.NewFromConfig(cfg),
		region:    region,
	}, nil
}

type RepositoryInfo struct {
	Name string
	ARN  string
	URI  string
}

// RegistryAuth carries decoded docker credentials for an ECR registry.
type RegistryAuth struct {
	Username string
	Password string
	Host     string
}

// EnsureRepository creates an ECR repository with scan-on-push enabled.
// Tags stay mutable so re-running a branch overwrites its environment label.
// Creating an existing repository is idempotent.
func (s *ECRService) EnsureRepository(ctx context.Context, repositoryName string) (*RepositoryInfo, error) {
	input := &ecr.CreateRepositoryInput{
		RepositoryName:     aws.String(repositoryName),
		ImageTagMutability: types.ImageTagMutabilityMutable,
		ImageScanningConfiguration: &types.ImageScanningConfiguration{
			ScanOnPush: true,
		},
		Tags: []types.Tag{
			{
				Key:   aws.String("ManagedBy"),
				Value: aws.String("dt-deployer"),
			},
		},
	}

	output, err := s.client.CreateRepository(ctx, input)
	if err != nil {
		// Check if repository already exists - this is idempotent
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "RepositoryAlreadyExistsException" {
			// Repository exists, describe it to get details
			describeOutput, describeErr := s.client.DescribeRepositories(ctx, &ecr.DescribeRepositoriesInput{
				RepositoryNames: []string{repositoryName},
			})
			if describeErr != nil {
				return nil, fmt.Errorf("repository exists but failed to describe: %w", describeErr)
			}
			if len(describeOutput.Repositories) == 0 {
				return nil, fmt.Errorf("repository exists but not found in describe")
			}
			repo := describeOutput.Repositories[0]
			return &RepositoryInfo{
				Name: aws.ToString(repo.RepositoryName),
				ARN:  aws.ToString(repo.RepositoryArn),
				URI:  aws.ToString(repo.RepositoryUri),
			}, nil
		}
		return nil, fmt.Errorf("failed to create repository: %w", err)
	}

	return &RepositoryInfo{
		Name: aws.ToString(output.Repository.RepositoryName),
		ARN:  aws.ToString(output.Repository.RepositoryArn),
		URI:  aws.ToString(output.Repository.RepositoryUri),
	}, nil
}

// AuthorizationToken fetches and decodes a docker login token for the
// account's ECR registry. The token is valid for 12 hours.
func (s *ECRService) AuthorizationToken(ctx context.Context) (*RegistryAuth, error) {
	output, err := s.client.GetAuthorizationToken(ctx, &ecr.GetAuthorizationTokenInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to get authorization token: %w", err)
	}
	if len(output.AuthorizationData) == 0 {
		return nil, fmt.Errorf("no authorization data returned")
	}

	data := output.AuthorizationData[0]
	username, password, err := decodeAuthorizationToken(aws.ToString(data.AuthorizationToken))
	if err != nil {
		return nil, err
	}

	host := strings.TrimPrefix(aws.ToString(data.ProxyEndpoint), "https://")
	return &RegistryAuth{
		Username: username,
		Password: password,
		Host:     host,
	}, nil
}

// RegistryHost returns the ECR registry host for an account in the service
// region.
func (s *ECRService) RegistryHost(accountID string) string {
	return fmt.Sprintf("%s.dkr.ecr.%s.amazonaws.com", accountID, s.region)
}

// GetAccountID retrieves the AWS account ID
func (s *ECRService) GetAccountID(ctx context.Context) (string, error) {
	output, err := s.stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("failed to get caller identity: %w", err)
	}
	return aws.ToString(output.Account), nil
}

// IsECRHost reports whether a registry host is an ECR endpoint of the form
// {account}.dkr.ecr.{region}.amazonaws.com.
func IsECRHost(host string) bool {
	return strings.Contains(host, ".dkr.ecr.") && strings.HasSuffix(host, ".amazonaws.com")
}

// decodeAuthorizationToken splits the base64 user:password token ECR returns.
func decodeAuthorizationToken(token string) (string, string, error) {
	decoded, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", "", fmt.Errorf("failed to decode authorization token: %w", err)
	}

	parts := strings.SplitN(string(decoded), ":", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("authorization token is not user:password")
	}
	return parts[0], parts[1], nil
}
