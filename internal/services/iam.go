package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/dtbase/dt-deployer/internal/dao/builddao"
	"github.com/dtbase/dt-deployer/internal/dao/lockdao"
)

// IAMService provisions the GitHub Actions OIDC role the pipeline assumes.
type IAMService struct {
	client    *iam.Client
	stsClient *sts.Client
}

func NewIAMService(ctx context.Context) (*IAMService, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &IAMService{
		client:    iam.NewFromConfig(cfg),
		stsClient: sts.NewFromConfig(cfg),
	}, nil
}

const (
	GitHubOIDCProviderURL = "token.actions.githubusercontent.com"
	GitHubOIDCAudience    = "sts.amazonaws.com"
)

// GetAWSAccountID retrieves the AWS account ID
func (s *IAMService) GetAWSAccountID(ctx context.Context) (string, error) {
	result, err := s.stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("failed to get caller identity: %w", err)
	}

	if result.Account == nil {
		return "", fmt.Errorf("account ID is nil")
	}

	return *result.Account, nil
}

// GetOrCreateGitHubOIDCProvider ensures the GitHub OIDC provider exists and
// returns its ARN.
func (s *IAMService) GetOrCreateGitHubOIDCProvider(ctx context.Context) (string, error) {
	accountID, err := s.GetAWSAccountID(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get AWS account ID: %w", err)
	}

	providerARN := fmt.Sprintf("arn:aws:iam::%s:oidc-provider/%s", accountID, GitHubOIDCProviderURL)

	_, err = s.client.GetOpenIDConnectProvider(ctx, &iam.GetOpenIDConnectProviderInput{
		OpenIDConnectProviderArn: aws.String(providerARN),
	})
	if err == nil {
		return providerARN, nil
	}

	var noSuchEntity *types.NoSuchEntityException
	if !errors.As(err, &noSuchEntity) && !strings.Contains(err.Error(), "NoSuchEntity") {
		return "", fmt.Errorf("failed to check OIDC provider: %w", err)
	}

	_, err = s.client.CreateOpenIDConnectProvider(ctx, &iam.CreateOpenIDConnectProviderInput{
		Url: aws.String("https://" + GitHubOIDCProviderURL),
		ClientIDList: []string{
			GitHubOIDCAudience,
		},
		// AWS validates GitHub's certificate chain itself; the thumbprint is
		// still required by the API but no longer checked.
		ThumbprintList: []string{"6938fd4d98bab03faadb97b34396831e3780aea1"},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	return providerARN, nil
}

// EnsureGitHubOIDCRole creates or updates an IAM role that GitHub Actions
// workflows of the given repository can assume via OIDC. Returns the role ARN.
func (s *IAMService) EnsureGitHubOIDCRole(ctx context.Context, roleName, owner, repo string) (string, error) {
	providerARN, err := s.GetOrCreateGitHubOIDCProvider(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get/create OIDC provider: %w", err)
	}

	trustPolicy := fmt.Sprintf(`{
  "Version": "2012-10-17",
  "Statement": [
    {
      "Effect": "Allow",
      "Principal": {
        "Federated": "%s"
      },
      "Action": "sts:AssumeRoleWithWebIdentity",
      "Condition": {
        "StringEquals": {
          "%s:aud": "%s"
        },
        "StringLike": {
          "%s:sub": "repo:%s/%s:*"
        }
      }
    }
  ]
}`, providerARN, GitHubOIDCProviderURL, GitHubOIDCAudience, GitHubOIDCProviderURL, owner, repo)

	getResult, err := s.client.GetRole(ctx, &iam.GetRoleInput{
		RoleName: aws.String(roleName),
	})
	roleExists := err == nil && getResult.Role != nil

	if !roleExists {
		_, err = s.client.CreateRole(ctx, &iam.CreateRoleInput{
			RoleName:                 aws.String(roleName),
			AssumeRolePolicyDocument: aws.String(trustPolicy),
			Description:              aws.String(fmt.Sprintf("GitHub Actions OIDC role for %s/%s", owner, repo)),
		})
		if err != nil {
			return "", fmt.Errorf("failed to create role: %w", err)
		}
	} else {
		_, err = s.client.UpdateAssumeRolePolicy(ctx, &iam.UpdateAssumeRolePolicyInput{
			RoleName:       aws.String(roleName),
			PolicyDocument: aws.String(trustPolicy),
		})
		if err != nil {
			return "", fmt.Errorf("failed to update trust policy: %w", err)
		}
	}

	accountID, err := s.GetAWSAccountID(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get AWS account ID: %w", err)
	}

	return fmt.Sprintf("arn:aws:iam::%s:role/%s", accountID, roleName), nil
}

// PipelinePolicyInput names the AWS resources a pipeline run touches.
type PipelinePolicyInput struct {
	AccountID      string
	Env            string
	RepositoryARNs []string
	StateBucket    string
}

// AttachPipelinePolicy attaches the inline policy granting a pipeline run its
// AWS surface: ECR push to the named repositories, Parameter Store reads
// under the environment's path, the run and lock tables, and the registry
// secrets. The state bucket statements are added only when a bucket is
// configured. PutRolePolicy is idempotent, so re-running refreshes the policy.
func (s *IAMService) AttachPipelinePolicy(ctx context.Context, roleName string, input PipelinePolicyInput) error {
	var statements []string

	statements = append(statements, `    {
      "Effect": "Allow",
      "Action": "ecr:GetAuthorizationToken",
      "Resource": "*"
    }`)

	if len(input.RepositoryARNs) > 0 {
		statements = append(statements, fmt.Sprintf(`    {
      "Effect": "Allow",
      "Action": [
        "ecr:BatchCheckLayerAvailability",
        "ecr:BatchGetImage",
        "ecr:CompleteLayerUpload",
        "ecr:GetDownloadUrlForLayer",
        "ecr:InitiateLayerUpload",
        "ecr:PutImage",
        "ecr:UploadLayerPart"
      ],
      "Resource": [%s]
    }`, jsonList(input.RepositoryARNs)))
	}

	statements = append(statements, fmt.Sprintf(`    {
      "Effect": "Allow",
      "Action": [
        "ssm:GetParameter",
        "ssm:GetParametersByPath"
      ],
      "Resource": "arn:aws:ssm:*:%s:parameter/%s/dt-deployer*"
    }`, input.AccountID, input.Env))

	statements = append(statements, fmt.Sprintf(`    {
      "Effect": "Allow",
      "Action": [
        "dynamodb:DeleteItem",
        "dynamodb:GetItem",
        "dynamodb:PutItem",
        "dynamodb:Query",
        "dynamodb:TransactWriteItems",
        "dynamodb:UpdateItem"
      ],
      "Resource": [%s]
    }`, jsonList([]string{
		fmt.Sprintf("arn:aws:dynamodb:*:%s:table/%s", input.AccountID, builddao.TableName(input.Env)),
		fmt.Sprintf("arn:aws:dynamodb:*:%s:table/%s", input.AccountID, lockdao.TableName(input.Env)),
	})))

	statements = append(statements, fmt.Sprintf(`    {
      "Effect": "Allow",
      "Action": "secretsmanager:GetSecretValue",
      "Resource": "arn:aws:secretsmanager:*:%s:secret:dt-deployer/*"
    }`, input.AccountID))

	if input.StateBucket != "" {
		statements = append(statements, fmt.Sprintf(`    {
      "Effect": "Allow",
      "Action": [
        "s3:GetObject",
        "s3:PutObject"
      ],
      "Resource": "arn:aws:s3:::%s/*"
    }`, input.StateBucket))
		statements = append(statements, fmt.Sprintf(`    {
      "Effect": "Allow",
      "Action": "s3:ListBucket",
      "Resource": "arn:aws:s3:::%s"
    }`, input.StateBucket))
	}

	policyDocument := fmt.Sprintf(`{
  "Version": "2012-10-17",
  "Statement": [
%s
  ]
}`, strings.Join(statements, ",\n"))

	_, err := s.client.PutRolePolicy(ctx, &iam.PutRolePolicyInput{
		RoleName:       aws.String(roleName),
		PolicyName:     aws.String("dt-deployer-pipeline"),
		PolicyDocument: aws.String(policyDocument),
	})
	if err != nil {
		return fmt.Errorf("failed to attach/update policy to role: %w", err)
	}

	return nil
}

func jsonList(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, value := range values {
		quoted = append(quoted, fmt.Sprintf("%q", value))
	}
	return strings.Join(quoted, ", ")
}
