package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/ottshare/party-api/internal/domain"
)

// DepositRepo provides typed DynamoDB operations for the deposits table.
type DepositRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewDepositRepo(client *dynamodb.Client, tableName string) *DepositRepo {
	return &DepositRepo{client: client, tableName: tableName}
}

func (r *DepositRepo) Put(ctx context.Context, d *domain.Deposit) error {
	item, err := attributevalue.MarshalMap(d)
	if err != nil {
		return fmt.Errorf("marshal deposit: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *DepositRepo) Get(ctx context.Context, depositID string) (*domain.Deposit, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("deposit_id", depositID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("deposit not found: %w", domain.ErrNotFound)
	}
	var d domain.Deposit
	if err := attributevalue.UnmarshalMap(out.Item, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DepositRepo) ListByUser(ctx context.Context, userID string) ([]domain.Deposit, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("user_id-index"),
		KeyConditionExpression: aws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		return nil, err
	}
	var deposits []domain.Deposit
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &deposits); err != nil {
		return nil, err
	}
	return deposits, nil
}

// ApplyOutcome transitions a deposit PAID → REFUNDED/FORFEITED. The
// conditional write guarantees the terminal outcome is applied at most once
// and never from another terminal state.
func (r *DepositRepo) ApplyOutcome(ctx context.Context, depositID string, outcome domain.DepositStatus) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("deposit_id", depositID),
		UpdateExpression:    aws.String("SET #status = :to, updated_at = :now"),
		ConditionExpression: aws.String("#status = :paid"),
		ExpressionAttributeNames: map[string]string{
			"#status": fieldStatus,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":to":   &types.AttributeValueMemberS{Value: string(outcome)},
			":paid": &types.AttributeValueMemberS{Value: string(domain.DepositPaid)},
			":now":  &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
	})
	if isConditionalFailure(err) {
		return fmt.Errorf("deposit not in PAID state: %w", domain.ErrConflict)
	}
	return err
}
