// Package stream provides DynamoDB Streams handlers that audit bidirectional
// relations written through kv.Dynamo.
package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jacentio/lattice/kv"
	"github.com/jacentio/lattice/relation"
)

// PairSpec names one mirrored relation: FromAttr on FromType entities and
// ToAttr on ToType entities, as passed to Graph.Pair.
type PairSpec struct {
	FromType string
	FromAttr string
	ToType   string
	ToAttr   string
}

// Auditor checks, for every lookup key inserted or removed on the relations
// table, that the opposite side of its pair agrees.
//
// A pair is briefly one-sided while a Bidirectional.Put or Del is between its
// two steps, so a disagreement is reported as a batch item failure rather
// than repaired: Lambda retries the record, and only a pair that stays
// inconsistent exhausts the retries and reaches the failure destination.
type Auditor struct {
	graph  *relation.Graph
	pairs  []PairSpec
	codec  relation.Codec
	logger *slog.Logger
}

// NewAuditor creates an Auditor for the given pairs. A nil codec uses the
// graph's codec.
func NewAuditor(graph *relation.Graph, pairs []PairSpec, codec relation.Codec, logger *slog.Logger) *Auditor {
	if codec == nil {
		codec = graph.Config().Codec
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{
		graph:  graph,
		pairs:  pairs,
		codec:  codec,
		logger: logger,
	}
}

// check is one audit to run: the pair coordinator and the entities in its
// from → to orientation.
type check struct {
	pair PairSpec
	from relation.Ref
	to   relation.Ref
}

// HandleStream audits a batch of DynamoDB stream records.
// This function is designed to be used as an AWS Lambda handler with
// ReportBatchItemFailures enabled.
func (a *Auditor) HandleStream(ctx context.Context, event events.DynamoDBEvent) (events.DynamoDBEventResponse, error) {
	var resp events.DynamoDBEventResponse
	var checked int

	for _, record := range event.Records {
		checks, err := a.checksFor(record)
		if err != nil {
			a.logger.Warn("skipping undecodable record",
				"eventID", record.EventID,
				"error", err,
			)
			continue
		}

		for _, c := range checks {
			checked++
			if err := a.audit(ctx, c); err != nil {
				a.logger.Error("relation audit failed",
					"eventID", record.EventID,
					"from", c.from.String(),
					"to", c.to.String(),
					"fromAttr", c.pair.FromAttr,
					"toAttr", c.pair.ToAttr,
					"inconsistent", errors.Is(err, relation.ErrInconsistent),
					"error", err,
				)
				resp.BatchItemFailures = append(resp.BatchItemFailures, events.DynamoDBBatchItemFailure{
					ItemIdentifier: record.Change.SequenceNumber,
				})
				break
			}
		}
	}

	a.logger.Info("relation audit completed",
		"records", len(event.Records),
		"checked", checked,
		"failures", len(resp.BatchItemFailures),
	)
	return resp, nil
}

func (a *Auditor) audit(ctx context.Context, c check) error {
	_, err := a.graph.Pair(c.pair.FromAttr, c.pair.ToAttr).Has(ctx, c.from, c.to)
	return err
}

// checksFor maps a stream record to the pair audits it calls for. Records
// that are not INSERT or REMOVE of a lookup key of a configured pair yield
// none.
func (a *Auditor) checksFor(record events.DynamoDBEventRecord) ([]check, error) {
	var image map[string]events.DynamoDBAttributeValue
	switch record.EventName {
	case "INSERT":
		image = record.Change.NewImage
	case "REMOVE":
		image = record.Change.OldImage
	default:
		return nil, nil
	}

	key, ok := StreamKey(record.Change.Keys)
	if !ok {
		return nil, nil
	}
	lk, ok := relation.ParseLookupKey(a.graph.Config().Root, key)
	if !ok {
		return nil, nil
	}

	// The edge names the target type. Without an image (KEYS_ONLY streams)
	// the pair's declared type is assumed.
	var toType string
	if data := getBinaryAttr(image, "v"); data != nil {
		var edge relation.Edge
		if err := a.codec.Unmarshal(data, &edge); err != nil {
			return nil, fmt.Errorf("decode edge %s: %w", key, err)
		}
		toType = edge.ToType
	}

	var checks []check
	for _, p := range a.pairs {
		if lk.Model == p.FromType && lk.Attr == p.FromAttr && (toType == "" || toType == p.ToType) {
			checks = append(checks, check{
				pair: p,
				from: relation.Ref{Type: p.FromType, ID: lk.From},
				to:   relation.Ref{Type: p.ToType, ID: lk.To},
			})
		}
		if lk.Model == p.ToType && lk.Attr == p.ToAttr && (toType == "" || toType == p.FromType) {
			checks = append(checks, check{
				pair: p,
				from: relation.Ref{Type: p.FromType, ID: lk.To},
				to:   relation.Ref{Type: p.ToType, ID: lk.From},
			})
		}
	}
	return checks, nil
}

// StreamKey rebuilds the store key of a stream record written by kv.Dynamo.
func StreamKey(keys map[string]events.DynamoDBAttributeValue) (string, bool) {
	pk := getStringAttr(keys, "pk")
	sk := getStringAttr(keys, "sk")
	if pk == "" || sk == "" {
		return "", false
	}
	return kv.JoinKey(pk, sk), true
}

// getStringAttr extracts a string attribute from a DynamoDB stream image.
func getStringAttr(image map[string]events.DynamoDBAttributeValue, key string) string {
	if v, ok := image[key]; ok && v.DataType() == events.DataTypeString {
		return v.String()
	}
	return ""
}

// getBinaryAttr extracts a binary attribute from a DynamoDB stream image.
func getBinaryAttr(image map[string]events.DynamoDBAttributeValue, key string) []byte {
	if v, ok := image[key]; ok && v.DataType() == events.DataTypeBinary {
		return v.Binary()
	}
	return nil
}
