package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/ottshare/party-api/internal/domain"
)

// BankVerificationRepo manages micro-deposit verification sessions.
// PK: user_id. Stage transitions are guarded by conditional writes so a
// stage can never be skipped even under concurrent requests.
type BankVerificationRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewBankVerificationRepo(client *dynamodb.Client, tableName string) *BankVerificationRepo {
	return &BankVerificationRepo{client: client, tableName: tableName}
}

// Reset unconditionally overwrites the user's record with a fresh input-stage
// session. This is the (re-)entry behavior: any prior step value is discarded.
func (r *BankVerificationRepo) Reset(ctx context.Context, v *domain.BankVerification) error {
	v.Step = domain.BankStepInput
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("marshal bank verification: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *BankVerificationRepo) Get(ctx context.Context, userID string) (*domain.BankVerification, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("user_id", userID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("bank verification not found: %w", domain.ErrNotFound)
	}
	var v domain.BankVerification
	if err := attributevalue.UnmarshalMap(out.Item, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Advance moves the session from one step to the next, applying extra field
// updates in the same write. The conditional expression rejects the write if
// the stored step is not `from`, so stages cannot be skipped or replayed.
func (r *BankVerificationRepo) Advance(ctx context.Context, userID string, from, to domain.BankVerificationStep, extra map[string]interface{}) error {
	if from.Next() != to {
		return fmt.Errorf("illegal step transition %s -> %s: %w", from, to, domain.ErrBadRequest)
	}
	updates := map[string]interface{}{fieldStep: string(to)}
	for k, v := range extra {
		updates[k] = v
	}
	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	ue.Names["#step"] = fieldStep
	ue.Values[":from"] = &types.AttributeValueMemberS{Value: string(from)}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("user_id", userID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("#step = :from"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if isConditionalFailure(err) {
		return fmt.Errorf("verification not at step %s: %w", from, domain.ErrConflict)
	}
	return err
}

// ConsumeReference matches and consumes the issued deposit reference exactly
// once. The conditional write requires the session to be at the verify step,
// unconsumed, and holding exactly this reference; a replay or a stale
// reference fails the condition.
func (r *BankVerificationRepo) ConsumeReference(ctx context.Context, userID, reference string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("user_id", userID),
		UpdateExpression:    aws.String("SET #step = :complete, #consumed = :t, updated_at = :now"),
		ConditionExpression: aws.String("#step = :verify AND #consumed = :f AND deposit_reference = :ref"),
		ExpressionAttributeNames: map[string]string{
			"#step":     fieldStep,
			"#consumed": fieldConsumed,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":complete": &types.AttributeValueMemberS{Value: string(domain.BankStepComplete)},
			":verify":   &types.AttributeValueMemberS{Value: string(domain.BankStepVerify)},
			":t":        &types.AttributeValueMemberBOOL{Value: true},
			":f":        &types.AttributeValueMemberBOOL{Value: false},
			":ref":      &types.AttributeValueMemberS{Value: reference},
			":now":      &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
	})
	if isConditionalFailure(err) {
		return fmt.Errorf("deposit reference mismatch or already consumed: %w", domain.ErrVerificationMismatch)
	}
	return err
}

// Annotate records an error message on the session and drops it back to the
// input step so the user can restart.
func (r *BankVerificationRepo) Annotate(ctx context.Context, userID, msg string) error {
	updates := map[string]interface{}{
		fieldStep:      string(domain.BankStepInput),
		fieldLastError: msg,
		"updated_at":   time.Now().UTC().Format(time.RFC3339),
	}
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("user_id", userID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

func isConditionalFailure(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
