package llm

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/go-logr/logr"

	"github.com/kagent-dev/agentmem/pkg/errs"
)

// newBedrockClient authenticates via the AWS SDK's default credential chain
// (env vars, shared config, or IAM role) and talks to Claude models hosted
// on Bedrock, reusing the same anthropic.Client wire format as the direct
// Anthropic provider.
func newBedrockClient(ctx context.Context, cfg Config, log logr.Logger) (Client, error) {
	if cfg.Region == "" {
		return nil, errs.ValidationError("bedrock provider requires a region", nil)
	}
	opts := []option.RequestOption{
		bedrock.WithLoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region)),
	}
	c := anthropic.NewClient(opts...)
	log.Info("initialized anthropic bedrock client", "model", cfg.Model, "region", cfg.Region)
	return &anthropicClient{client: c, model: cfg.Model, log: log}, nil
}
