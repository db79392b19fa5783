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

// PaymentRepo provides typed DynamoDB operations for the payments table.
type PaymentRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewPaymentRepo(client *dynamodb.Client, tableName string) *PaymentRepo {
	return &PaymentRepo{client: client, tableName: tableName}
}

func (r *PaymentRepo) Put(ctx context.Context, p *domain.Payment) error {
	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return fmt.Errorf("marshal payment: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *PaymentRepo) Get(ctx context.Context, paymentID string) (*domain.Payment, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("payment_id", paymentID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("payment not found: %w", domain.ErrNotFound)
	}
	var p domain.Payment
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepo) ListByUser(ctx context.Context, userID string) ([]domain.Payment, error) {
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
	var payments []domain.Payment
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &payments); err != nil {
		return nil, err
	}
	return payments, nil
}

// ListByPartyPeriod returns a party's payments for one payout period.
func (r *PaymentRepo) ListByPartyPeriod(ctx context.Context, partyID, period string) ([]domain.Payment, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("party_id-period-index"),
		KeyConditionExpression: aws.String("party_id = :pid AND #period = :per"),
		ExpressionAttributeNames: map[string]string{
			"#period": "period",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pid": &types.AttributeValueMemberS{Value: partyID},
			":per": &types.AttributeValueMemberS{Value: period},
		},
	})
	if err != nil {
		return nil, err
	}
	var payments []domain.Payment
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &payments); err != nil {
		return nil, err
	}
	return payments, nil
}

// Claim transitions a payment FAILED → PENDING. The conditional write is
// what prevents a double charge: only one retry can claim the payment, any
// concurrent attempt fails the condition.
func (r *PaymentRepo) Claim(ctx context.Context, paymentID string) error {
	return r.transition(ctx, paymentID, domain.PaymentFailed, domain.PaymentPending, nil)
}

// MarkCompleted transitions PENDING → COMPLETED after a successful charge.
func (r *PaymentRepo) MarkCompleted(ctx context.Context, paymentID string) error {
	return r.transition(ctx, paymentID, domain.PaymentPending, domain.PaymentCompleted, nil)
}

// MarkFailed transitions PENDING → FAILED, recording the authoritative
// attempt number, the next retry date, and whether another retry is allowed.
func (r *PaymentRepo) MarkFailed(ctx context.Context, paymentID string, attemptNumber int, nextRetry time.Time, canRetry bool, reason string) error {
	return r.transition(ctx, paymentID, domain.PaymentPending, domain.PaymentFailed, map[string]interface{}{
		fieldAttemptNumber: attemptNumber,
		fieldNextRetryDate: nextRetry.UTC().Format(time.RFC3339),
		fieldCanRetry:      canRetry,
		fieldFailureReason: reason,
	})
}

func (r *PaymentRepo) transition(ctx context.Context, paymentID string, from, to domain.PaymentStatus, extra map[string]interface{}) error {
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
		Key:                       strKey("payment_id", paymentID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("#status = :from"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if isConditionalFailure(err) {
		return fmt.Errorf("payment not in status %s: %w", from, domain.ErrConflict)
	}
	return err
}
