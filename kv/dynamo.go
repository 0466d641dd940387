package kv

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ErrInvalidKey is returned by Dynamo for keys that cannot be split into a
// partition and a sort key.
var ErrInvalidKey = errors.New("kv: key has no partition/sort split")

// DynamoAPI is the subset of the DynamoDB client used by Dynamo.
// *dynamodb.Client satisfies it.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// DynamoConfig holds configuration for the Dynamo store.
type DynamoConfig struct {
	// Table is the name of the relation table.
	// Default: "lattice_relations"
	Table string

	// PageSize caps the number of items fetched per Query page.
	// Default: 100
	PageSize int32
}

// DefaultDynamoConfig returns sensible defaults.
func DefaultDynamoConfig() DynamoConfig {
	return DynamoConfig{
		Table:    "lattice_relations",
		PageSize: 100,
	}
}

func (c *DynamoConfig) validate() {
	if c.Table == "" {
		c.Table = "lattice_relations"
	}
	if c.PageSize <= 0 {
		c.PageSize = 100
	}
}

// Dynamo is a Store backed by a single DynamoDB table.
//
// Each key is split at its last '/' into a partition key ("pk") and a sort
// key ("sk"); the value lives in the binary attribute "v". A Scan therefore
// targets one partition: Range.Prefix must end with '/', and only keys with
// no further '/' after the prefix are visited.
type Dynamo struct {
	client DynamoAPI
	config DynamoConfig
}

// NewDynamo creates a Dynamo store.
func NewDynamo(client DynamoAPI, config DynamoConfig) *Dynamo {
	config.validate()
	return &Dynamo{client: client, config: config}
}

// Table returns the configured table name.
func (d *Dynamo) Table() string {
	return d.config.Table
}

// dynamoItem is the stored item layout.
type dynamoItem struct {
	PK string `dynamodbav:"pk"`
	SK string `dynamodbav:"sk"`
	V  []byte `dynamodbav:"v"`
}

// SplitKey splits key into its partition and sort components.
func SplitKey(key string) (pk, sk string, err error) {
	i := strings.LastIndexByte(key, Separator)
	if i <= 0 || i == len(key)-1 {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return key[:i], key[i+1:], nil
}

// JoinKey is the inverse of SplitKey.
func JoinKey(pk, sk string) string {
	return pk + string(Separator) + sk
}

func keyAttrs(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: pk},
		"sk": &types.AttributeValueMemberS{Value: sk},
	}
}

func (d *Dynamo) Get(ctx context.Context, key string) ([]byte, error) {
	pk, sk, err := SplitKey(key)
	if err != nil {
		return nil, err
	}
	result, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.config.Table),
		Key:            keyAttrs(pk, sk),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if result.Item == nil {
		return nil, ErrNotFound
	}
	var item dynamoItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("kv: unmarshal item %q: %w", key, err)
	}
	return item.V, nil
}

// Write applies ops in one TransactWriteItems call.
func (d *Dynamo) Write(ctx context.Context, ops []Op) error {
	if len(ops) == 0 {
		return nil
	}
	if err := validateOps(ops); err != nil {
		return err
	}

	items := make([]types.TransactWriteItem, 0, len(ops))
	for _, op := range ops {
		pk, sk, err := SplitKey(op.Key)
		if err != nil {
			return err
		}
		switch op.Kind {
		case OpPut:
			av, err := attributevalue.MarshalMap(dynamoItem{PK: pk, SK: sk, V: op.Value})
			if err != nil {
				return fmt.Errorf("kv: marshal item %q: %w", op.Key, err)
			}
			items = append(items, types.TransactWriteItem{
				Put: &types.Put{
					TableName: aws.String(d.config.Table),
					Item:      av,
				},
			})
		case OpDel:
			items = append(items, types.TransactWriteItem{
				Delete: &types.Delete{
					TableName: aws.String(d.config.Table),
					Key:       keyAttrs(pk, sk),
				},
			})
		default:
			return fmt.Errorf("kv: unknown op kind %d", op.Kind)
		}
	}

	_, err := d.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	return err
}

func (d *Dynamo) Scan(ctx context.Context, r Range) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		input, err := d.queryInput(r)
		if err != nil {
			yield(Entry{}, err)
			return
		}
		if r.Start != "" && r.End != "" && r.Start > r.End {
			// BETWEEN rejects inverted bounds; the range is simply empty.
			return
		}

		n := 0
		paginator := dynamodb.NewQueryPaginator(d.client, input)
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				yield(Entry{}, err)
				return
			}
			for _, raw := range page.Items {
				var item dynamoItem
				if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
					yield(Entry{}, fmt.Errorf("kv: unmarshal item: %w", err))
					return
				}
				if !yield(Entry{Key: JoinKey(item.PK, item.SK), Value: item.V}, nil) {
					return
				}
				n++
				if r.Limit > 0 && n >= r.Limit {
					return
				}
			}
		}
	}
}

// queryInput translates a Range into a single-partition Query.
func (d *Dynamo) queryInput(r Range) (*dynamodb.QueryInput, error) {
	if len(r.Prefix) < 2 || r.Prefix[len(r.Prefix)-1] != Separator {
		return nil, fmt.Errorf("%w: prefix %q must end with %q", ErrUnsupportedRange, r.Prefix, Separator)
	}
	pk := r.Prefix[:len(r.Prefix)-1]

	keyCond := "pk = :pk"
	values := map[string]types.AttributeValue{
		":pk": &types.AttributeValueMemberS{Value: pk},
	}
	switch {
	case r.Start != "" && r.End != "":
		keyCond += " AND sk BETWEEN :start AND :end"
		values[":start"] = &types.AttributeValueMemberS{Value: r.Start}
		values[":end"] = &types.AttributeValueMemberS{Value: r.End}
	case r.Start != "":
		keyCond += " AND sk >= :start"
		values[":start"] = &types.AttributeValueMemberS{Value: r.Start}
	case r.End != "":
		keyCond += " AND sk <= :end"
		values[":end"] = &types.AttributeValueMemberS{Value: r.End}
	}

	pageSize := d.config.PageSize
	if r.Limit > 0 && int32(r.Limit) < pageSize {
		pageSize = int32(r.Limit)
	}

	return &dynamodb.QueryInput{
		TableName:                 aws.String(d.config.Table),
		KeyConditionExpression:    aws.String(keyCond),
		ExpressionAttributeValues: values,
		ScanIndexForward:          aws.Bool(!r.Reverse),
		ConsistentRead:            aws.Bool(true),
		Limit:                     aws.Int32(pageSize),
	}, nil
}

// EnsureTable creates the relation table if it does not exist and waits for
// it to become active. Streams are enabled with both images so the table can
// feed the consistency auditor.
func (d *Dynamo) EnsureTable(ctx context.Context) error {
	_, err := d.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(d.config.Table),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("pk"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("sk"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("pk"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("sk"), KeyType: types.KeyTypeRange},
		},
		BillingMode: types.BillingModePayPerRequest,
		StreamSpecification: &types.StreamSpecification{
			StreamEnabled:  aws.Bool(true),
			StreamViewType: types.StreamViewTypeNewAndOldImages,
		},
	})
	if err != nil {
		var inUse *types.ResourceInUseException
		if !errors.As(err, &inUse) {
			return fmt.Errorf("kv: create table %s: %w", d.config.Table, err)
		}
	}

	waiter := dynamodb.NewTableExistsWaiter(d.client)
	return waiter.Wait(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(d.config.Table),
	}, 2*time.Minute)
}

// Close is a no-op; the DynamoDB client is owned by the caller.
func (d *Dynamo) Close() error {
	return nil
}
