// Package secrets loads the bot's credential bundle either from the environment (dev) or
// from AWS Secrets Manager.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/go-playground/validator/v10"

	"github.com/jonathan/penpal-confirmation-bot/internal/schemas"
)

// SecretPrefix names the Secrets Manager entry, one per community.
const SecretPrefix = "penpal-confirmation-bot/"

// ErrEmpty is returned when a source yields no secret string.
var ErrEmpty = errors.New("secret is empty")

// Bundle holds the platform and alerting credentials.
type Bundle struct {
	RedditClientID     string `json:"REDDIT_CLIENT_ID" validate:"required"`
	RedditClientSecret string `json:"REDDIT_CLIENT_SECRET" validate:"required"`
	RedditUserAgent    string `json:"REDDIT_USER_AGENT" validate:"required"`
	RedditUsername     string `json:"REDDIT_USERNAME" validate:"required,min=3"`
	RedditPassword     string `json:"REDDIT_PASSWORD" validate:"required"`
	PushoverAppToken   string `json:"PUSHOVER_APP_TOKEN"`
	PushoverUserToken  string `json:"PUSHOVER_USER_TOKEN"`
}

// HasPushover reports whether both Pushover tokens are present.
func (b *Bundle) HasPushover() bool {
	return b.PushoverAppToken != "" && b.PushoverUserToken != ""
}

// Source yields the raw JSON secret string.
type Source interface {
	Fetch(ctx context.Context) (string, error)
}

// EnvSource returns a fixed JSON string, normally the SECRETS environment variable.
type EnvSource struct {
	Value string
}

// Fetch implements Source.
func (s EnvSource) Fetch(context.Context) (string, error) {
	if s.Value == "" {
		return "", fmt.Errorf("SECRETS: %w", ErrEmpty)
	}
	return s.Value, nil
}

// SecretsManagerAPI is the subset of the Secrets Manager client used here.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSSource reads a secret string from AWS Secrets Manager.
type AWSSource struct {
	Client   SecretsManagerAPI
	SecretID string
}

// NewAWSSource builds a Secrets Manager source for subreddit using the default credential
// chain. An empty region defers to the environment.
func NewAWSSource(ctx context.Context, region, subreddit string) (*AWSSource, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &AWSSource{
		Client:   secretsmanager.NewFromConfig(cfg),
		SecretID: SecretPrefix + subreddit,
	}, nil
}

// Fetch implements Source.
func (s *AWSSource) Fetch(ctx context.Context) (string, error) {
	out, err := s.Client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(s.SecretID),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get secret %s: %w", s.SecretID, err)
	}
	value := aws.ToString(out.SecretString)
	if value == "" {
		return "", fmt.Errorf("secret %s: %w", s.SecretID, ErrEmpty)
	}
	return value, nil
}

// Load fetches, schema-checks and decodes the bundle.
func Load(ctx context.Context, src Source) (*Bundle, error) {
	raw, err := src.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse decodes a JSON secret string into a validated Bundle.
func Parse(raw string) (*Bundle, error) {
	if err := schemas.Validate(schemas.Secrets, raw); err != nil {
		return nil, fmt.Errorf("invalid secrets: %w", err)
	}
	var b Bundle
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		return nil, fmt.Errorf("failed to decode secrets: %w", err)
	}
	if err := validator.New().Struct(&b); err != nil {
		return nil, fmt.Errorf("invalid secrets: %w", err)
	}
	return &b, nil
}

// Select picks the source the way the deployment expects: the SECRETS value in dev mode,
// Secrets Manager otherwise.
func Select(ctx context.Context, dev bool, envValue, region, subreddit string) (Source, error) {
	if dev {
		return EnvSource{Value: envValue}, nil
	}
	return NewAWSSource(ctx, region, subreddit)
}
