// Package awsclient builds the AWS clients shared by the lattice binaries.
package awsclient

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// Options selects the account, region and endpoint of a client.
type Options struct {
	// Region overrides the region from the shared config. Empty = SDK default.
	Region string

	// Profile selects a shared config profile. Empty = SDK default.
	Profile string

	// Endpoint overrides the service endpoint (e.g. DynamoDB Local at
	// http://localhost:8000). Empty = the regional endpoint.
	Endpoint string
}

func (o Options) loadOptions() []func(*config.LoadOptions) error {
	var opts []func(*config.LoadOptions) error
	if o.Region != "" {
		opts = append(opts, config.WithRegion(o.Region))
	}
	if o.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(o.Profile))
	}
	return opts
}

// DynamoDB returns a DynamoDB client configured from the environment and o.
func DynamoDB(ctx context.Context, o Options) (*dynamodb.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, o.loadOptions()...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg, func(opts *dynamodb.Options) {
		if o.Endpoint != "" {
			opts.BaseEndpoint = aws.String(o.Endpoint)
		}
	}), nil
}
