package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"
)

// SecretsAPI is the subset of the Secrets Manager client used at startup
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// LoadSecrets pulls a JSON secret from AWS Secrets Manager and exports its
// keys into the environment. Variables that are already set win.
func LoadSecrets(ctx context.Context, secretID string) error {
	if secretID == "" {
		return nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("load aws config: %w", err)
	}

	return applySecrets(ctx, secretsmanager.NewFromConfig(cfg), secretID)
}

func applySecrets(ctx context.Context, api SecretsAPI, secretID string) error {
	out, err := api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.ErrorCode() {
			case "ResourceNotFoundException":
				return fmt.Errorf("secret %q not found", secretID)
			case "AccessDeniedException":
				return fmt.Errorf("access denied to secret %q", secretID)
			}
			return fmt.Errorf("get secret %q: %s: %s", secretID, apiErr.ErrorCode(), apiErr.ErrorMessage())
		}
		return fmt.Errorf("get secret %q: %w", secretID, err)
	}

	if out.SecretString == nil {
		return fmt.Errorf("secret %q has no string value", secretID)
	}

	var values map[string]string
	if err := json.Unmarshal([]byte(*out.SecretString), &values); err != nil {
		return fmt.Errorf("secret %q is not a JSON object: %w", secretID, err)
	}

	applied := 0
	for key, value := range values {
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return err
		}
		applied++
	}

	slog.Info("secrets loaded", "secretId", secretID, "applied", applied)
	return nil
}
