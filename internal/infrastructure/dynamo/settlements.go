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

// SettlementRepo provides typed DynamoDB operations for the settlements table.
type SettlementRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewSettlementRepo(client *dynamodb.Client, tableName string) *SettlementRepo {
	return &SettlementRepo{client: client, tableName: tableName}
}

func (r *SettlementRepo) Put(ctx context.Context, s *domain.Settlement) error {
	item, err := attributevalue.MarshalMap(s)
	if err != nil {
		return fmt.Errorf("marshal settlement: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *SettlementRepo) Get(ctx context.Context, settlementID string) (*domain.Settlement, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("settlement_id", settlementID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("settlement not found: %w", domain.ErrNotFound)
	}
	var s domain.Settlement
	if err := attributevalue.UnmarshalMap(out.Item, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SettlementRepo) ListByUser(ctx context.Context, userID string) ([]domain.Settlement, error) {
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
	var settlements []domain.Settlement
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &settlements); err != nil {
		return nil, err
	}
	return settlements, nil
}

// Transition moves a settlement between lifecycle states with a conditional
// write, applying extra field updates in the same operation.
func (r *SettlementRepo) Transition(ctx context.Context, settlementID string, from, to domain.SettlementStatus, extra map[string]interface{}) error {
	updates := map[string]interface{}{fieldStatus: string(to)}
	for k, v := range extra {
		updates[k] = v
	}
	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	ue.Names["#status"] = fieldStatus
	ue.Values[":from"] = &types.AttributeValueMemberS{Value: string(from)}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("settlement_id", settlementID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("#status = :from"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if isConditionalFailure(err) {
		return fmt.Errorf("settlement not in status %s: %w", from, domain.ErrConflict)
	}
	return err
}
