// Package main provides the lattice-audit Lambda function: a DynamoDB Streams
// consumer that reports bidirectional relations whose two sides disagree.
//
// Configuration (environment):
//
//	LATTICE_TABLE     relation table name (default lattice_relations)
//	LATTICE_ROOT      key prefix (default /relation)
//	LATTICE_CODEC     json or msgpack (default json)
//	LATTICE_PAIRS     comma-separated pairs, e.g. user.follows:tag.followers
//	LATTICE_ENDPOINT  DynamoDB endpoint override
//	LATTICE_LOG_LEVEL debug, info, warn or error (default info)
//
// The event source mapping must enable ReportBatchItemFailures.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/viper"

	"github.com/jacentio/lattice/internal/awsclient"
	"github.com/jacentio/lattice/kv"
	"github.com/jacentio/lattice/relation"
	"github.com/jacentio/lattice/stream"
)

func main() {
	v := viper.New()
	v.SetEnvPrefix("lattice")
	v.AutomaticEnv()
	v.SetDefault("table", kv.DefaultDynamoConfig().Table)
	v.SetDefault("root", relation.DefaultConfig().Root)
	v.SetDefault("codec", "json")
	v.SetDefault("log_level", "info")

	auditor, err := newAuditor(context.Background(), v)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	lambda.Start(auditor.HandleStream)
}

func newAuditor(ctx context.Context, v *viper.Viper) (*stream.Auditor, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString("log_level"))); err != nil {
		return nil, fmt.Errorf("LATTICE_LOG_LEVEL: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	pairs, err := parsePairs(v.GetString("pairs"))
	if err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("LATTICE_PAIRS is required")
	}
	codec, err := relation.CodecByName(v.GetString("codec"))
	if err != nil {
		return nil, err
	}

	client, err := awsclient.DynamoDB(ctx, awsclient.Options{Endpoint: v.GetString("endpoint")})
	if err != nil {
		return nil, err
	}
	store := kv.NewDynamo(client, kv.DynamoConfig{Table: v.GetString("table")})

	reg := relation.NewRegistry()
	for _, p := range pairs {
		reg.Register(p.FromType, relation.RefLoader(p.FromType))
		reg.Register(p.ToType, relation.RefLoader(p.ToType))
	}

	cfg := relation.DefaultConfig()
	cfg.Root = v.GetString("root")
	cfg.Codec = codec
	cfg.Logger = logger
	graph := relation.New(store, reg, cfg)

	logger.Info("lattice audit configured",
		"table", store.Table(),
		"root", cfg.Root,
		"codec", codec.Name(),
		"pairs", len(pairs),
	)
	return stream.NewAuditor(graph, pairs, codec, logger), nil
}

// parsePairs parses "fromType.fromAttr:toType.toAttr" entries separated by
// commas.
func parsePairs(s string) ([]stream.PairSpec, error) {
	var pairs []stream.PairSpec
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		fromPart, toPart, ok := strings.Cut(item, ":")
		if !ok {
			return nil, fmt.Errorf("invalid pair %q (want type.attr:type.attr)", item)
		}
		fromType, fromAttr, ok1 := strings.Cut(fromPart, ".")
		toType, toAttr, ok2 := strings.Cut(toPart, ".")
		if !ok1 || !ok2 || fromType == "" || fromAttr == "" || toType == "" || toAttr == "" {
			return nil, fmt.Errorf("invalid pair %q (want type.attr:type.attr)", item)
		}
		pairs = append(pairs, stream.PairSpec{
			FromType: fromType,
			FromAttr: fromAttr,
			ToType:   toType,
			ToAttr:   toAttr,
		})
	}
	return pairs, nil
}
