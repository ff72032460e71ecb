package sink

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/JonMunkholm/promptsync/internal/model"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoKV.
type DynamoAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// DynamoKV writes each record as one item whose partition key attribute
// holds the group name.
type DynamoKV struct {
	client       DynamoAPI
	table        string
	partitionKey string
}

// NewDynamoClient builds a DynamoDB client. A non-empty endpoint points it
// at a local or compatible service.
func NewDynamoClient(cfg aws.Config, endpoint string) *dynamodb.Client {
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}

// NewDynamoKV returns a KV backed by table.
func NewDynamoKV(client DynamoAPI, table, partitionKey string) *DynamoKV {
	return &DynamoKV{client: client, table: table, partitionKey: partitionKey}
}

func (d *DynamoKV) Put(ctx context.Context, rec model.ExportRecord) error {
	if rec.GroupName == "" {
		return ErrEmptyKey
	}

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal %q: %w", rec.GroupName, err)
	}
	item[d.partitionKey] = &types.AttributeValueMemberS{Value: rec.GroupName}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("dynamodb put %q: %w", rec.GroupName, err)
	}
	return nil
}

func (d *DynamoKV) Get(ctx context.Context, group string) (model.ExportRecord, bool, error) {
	var rec model.ExportRecord
	if group == "" {
		return rec, false, nil
	}

	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.table),
		Key:            map[string]types.AttributeValue{d.partitionKey: &types.AttributeValueMemberS{Value: group}},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return rec, false, fmt.Errorf("dynamodb get %q: %w", group, err)
	}
	if len(out.Item) == 0 {
		return rec, false, nil
	}

	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return rec, false, fmt.Errorf("unmarshal %q: %w", group, err)
	}
	return rec, true, nil
}
