// internal/common/aws/config.go
package aws

import (
	"context"
	"fmt"

	appconfig "session-handlers/internal/common/config"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

// LoadConfig resolves the SDK configuration shared by every client. A
// non-empty Endpoint redirects all services, which is how local stacks are
// reached.
func LoadConfig(ctx context.Context, cfg appconfig.AWSConfig) (sdkaws.Config, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(cfg.Endpoint))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return sdkaws.Config{}, fmt.Errorf("failed to load aws config: %w", err)
	}
	return awsCfg, nil
}
