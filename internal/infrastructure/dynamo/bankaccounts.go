package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/ottshare/party-api/internal/domain"
)

// BankAccountRepo stores verified payout destinations. PK: user_id.
type BankAccountRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewBankAccountRepo(client *dynamodb.Client, tableName string) *BankAccountRepo {
	return &BankAccountRepo{client: client, tableName: tableName}
}

func (r *BankAccountRepo) Put(ctx context.Context, a *domain.BankAccount) error {
	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return fmt.Errorf("marshal bank account: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *BankAccountRepo) Get(ctx context.Context, userID string) (*domain.BankAccount, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("user_id", userID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("bank account not found: %w", domain.ErrNotFound)
	}
	var a domain.BankAccount
	if err := attributevalue.UnmarshalMap(out.Item, &a); err != nil {
		return nil, err
	}
	return &a, nil
}
