package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"soyeon/config"
	"soyeon/models"
)

// Sort keys must order lexically, so the fraction is never trimmed.
const dynamoSortLayout = "2006-01-02T15:04:05.000000000Z"

// The append counter lives in its own partition so Recent never reads it.
const dynamoCounterSuffix = "#seq"

type dynamoAPI interface {
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoDBStore keeps all turns of one memory in a single partition, sorted
// by an append sequence shared by every writer of that memory.
type DynamoDBStore struct {
	db       dynamoAPI
	table    string
	memory   string
	speakers models.Speakers
}

func NewDynamoDBStore(ctx context.Context, cfg config.DynamoDBConfig, memory string, speakers models.Speakers) (*DynamoDBStore, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}

	// DynamoDB Local accepts any credentials.
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{URL: endpoint}, nil
		})
		opts = append(opts,
			awsconfig.WithEndpointResolverWithOptions(customResolver),
			awsconfig.WithCredentialsProvider(credentials.StaticCredentialsProvider{
				Value: aws.Credentials{
					AccessKeyID: "dummy", SecretAccessKey: "dummy", SessionToken: "dummy",
				},
			}),
		)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	store := newDynamoDBStore(dynamodb.NewFromConfig(awsCfg), cfg.Table, memory, speakers)
	if err := store.ensureTableExists(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func newDynamoDBStore(db dynamoAPI, table, memory string, speakers models.Speakers) *DynamoDBStore {
	return &DynamoDBStore{db: db, table: table, memory: memory, speakers: speakers}
}

func (s *DynamoDBStore) ensureTableExists(ctx context.Context) error {
	_, err := s.db.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(s.table),
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String("Memory"),
				AttributeType: types.ScalarAttributeTypeS,
			},
			{
				AttributeName: aws.String("SortKey"),
				AttributeType: types.ScalarAttributeTypeS,
			},
		},
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String("Memory"),
				KeyType:       types.KeyTypeHash,
			},
			{
				AttributeName: aws.String("SortKey"),
				KeyType:       types.KeyTypeRange,
			},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		var inUse *types.ResourceInUseException
		if errors.As(err, &inUse) {
			return nil
		}
		return fmt.Errorf("failed to create table %s: %w", s.table, err)
	}
	return nil
}

func (s *DynamoDBStore) Append(ctx context.Context, turn models.Turn) error {
	if turn.ID == "" {
		turn.ID = uuid.New().String()
	}
	ts := turn.Timestamp.UTC()

	seq, err := s.nextSeq(ctx)
	if err != nil {
		return storeError("append", err)
	}

	_, err = s.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item: map[string]types.AttributeValue{
			"Memory":    &types.AttributeValueMemberS{Value: s.memory},
			"SortKey":   &types.AttributeValueMemberS{Value: fmt.Sprintf("%020d#%s", seq, ts.Format(dynamoSortLayout))},
			"Seq":       &types.AttributeValueMemberN{Value: strconv.FormatInt(seq, 10)},
			"ID":        &types.AttributeValueMemberS{Value: turn.ID},
			"Timestamp": &types.AttributeValueMemberS{Value: ts.Format(time.RFC3339Nano)},
			"Role":      &types.AttributeValueMemberS{Value: s.speakers.Label(turn.Role)},
			"Content":   &types.AttributeValueMemberS{Value: turn.Content},
		},
	})
	if err != nil {
		return storeError("append", err)
	}
	return nil
}

// nextSeq atomically bumps the memory's append counter.
func (s *DynamoDBStore) nextSeq(ctx context.Context) (int64, error) {
	result, err := s.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"Memory":  &types.AttributeValueMemberS{Value: s.memory + dynamoCounterSuffix},
			"SortKey": &types.AttributeValueMemberS{Value: "counter"},
		},
		UpdateExpression: aws.String("ADD #seq :one"),
		ExpressionAttributeNames: map[string]string{
			"#seq": "Seq",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to bump sequence: %w", err)
	}

	n, ok := result.Attributes["Seq"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, errors.New("sequence missing from update result")
	}
	return strconv.ParseInt(n.Value, 10, 64)
}

func (s *DynamoDBStore) Recent(ctx context.Context, limit int) ([]models.Turn, error) {
	if limit <= 0 {
		return []models.Turn{}, nil
	}

	result, err := s.db.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("#m = :m"),
		ExpressionAttributeNames: map[string]string{
			"#m": "Memory",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":m": &types.AttributeValueMemberS{Value: s.memory},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, storeError("recent", err)
	}

	turns := make([]models.Turn, 0, len(result.Items))
	for _, item := range result.Items {
		timestamp, _ := time.Parse(time.RFC3339Nano, stringAttr(item, "Timestamp"))
		turns = append(turns, models.Turn{
			ID:        stringAttr(item, "ID"),
			Timestamp: timestamp,
			Role:      s.speakers.RoleOf(stringAttr(item, "Role")),
			Content:   stringAttr(item, "Content"),
		})
	}

	// Query returned newest first.
	reverseTurns(turns)
	return turns, nil
}

func (s *DynamoDBStore) Close() error { return nil }

func stringAttr(item map[string]types.AttributeValue, key string) string {
	if v, ok := item[key].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}
