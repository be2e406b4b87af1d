package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"
	"github.com/supplierhub/supplierhub/internal/models"
)

var (
	ErrVouchExists      = errors.New("vouch already exists")
	ErrVouchNotFound    = errors.New("vouch not found")
	ErrSupplierNotFound = errors.New("supplier not found")
)

type VouchRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *logrus.Logger
}

func NewVouchRepository(client *dynamodb.Client, tableName string, logger *logrus.Logger) *VouchRepository {
	return &VouchRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// Create writes the vouch and increments the vouched-for supplier's counter
// in one transaction. The conditional put enforces one vouch per
// (voucher, vouchee) pair.
func (r *VouchRepository) Create(ctx context.Context, vouch *models.Vouch) error {
	vouch.CreatedAt = time.Now()

	item, err := attributevalue.MarshalMap(vouch)
	if err != nil {
		r.logger.WithError(err).Error("Failed to marshal vouch for DynamoDB")
		return fmt.Errorf("failed to marshal vouch: %w", err)
	}
	item["PK"] = &types.AttributeValueMemberS{Value: vouch.GetPK()}
	item["SK"] = &types.AttributeValueMemberS{Value: vouch.GetSK()}

	vouchee := &models.Supplier{ID: vouch.VouchedForID}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           aws.String(r.tableName),
					Item:                item,
					ConditionExpression: aws.String("attribute_not_exists(PK)"),
				},
			},
			{
				Update: &types.Update{
					TableName: aws.String(r.tableName),
					Key: map[string]types.AttributeValue{
						"PK": &types.AttributeValueMemberS{Value: vouchee.GetPK()},
						"SK": &types.AttributeValueMemberS{Value: vouchee.GetSK()},
					},
					UpdateExpression:    aws.String("ADD total_vouches :one"),
					ConditionExpression: aws.String("attribute_exists(PK)"),
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":one": &types.AttributeValueMemberN{Value: "1"},
					},
				},
			},
		},
	})

	if err != nil {
		if transactionConditionFailed(err, 0) {
			return ErrVouchExists
		}
		if transactionConditionFailed(err, 1) {
			return ErrSupplierNotFound
		}
		r.logger.WithError(err).Error("Failed to create vouch in DynamoDB")
		return fmt.Errorf("failed to create vouch: %w", err)
	}

	return nil
}

// Get returns (nil, nil) when no vouch exists for the pair.
func (r *VouchRepository) Get(ctx context.Context, vouchedByID, vouchedForID int64) (*models.Vouch, error) {
	lookup := &models.Vouch{VouchedByID: vouchedByID, VouchedForID: vouchedForID}

	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: lookup.GetPK()},
			"SK": &types.AttributeValueMemberS{Value: lookup.GetSK()},
		},
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to get vouch from DynamoDB")
		return nil, fmt.Errorf("failed to get vouch: %w", err)
	}

	if result.Item == nil {
		return nil, nil
	}

	var vouch models.Vouch
	if err := attributevalue.UnmarshalMap(result.Item, &vouch); err != nil {
		return nil, fmt.Errorf("failed to unmarshal vouch: %w", err)
	}

	return &vouch, nil
}

// Delete removes the vouch and decrements the vouched-for supplier's counter
// in one transaction. Deleting an absent vouch returns ErrVouchNotFound.
func (r *VouchRepository) Delete(ctx context.Context, vouchedByID, vouchedForID int64) error {
	vouch := &models.Vouch{VouchedByID: vouchedByID, VouchedForID: vouchedForID}
	vouchee := &models.Supplier{ID: vouchedForID}

	_, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Delete: &types.Delete{
					TableName: aws.String(r.tableName),
					Key: map[string]types.AttributeValue{
						"PK": &types.AttributeValueMemberS{Value: vouch.GetPK()},
						"SK": &types.AttributeValueMemberS{Value: vouch.GetSK()},
					},
					ConditionExpression: aws.String("attribute_exists(PK)"),
				},
			},
			{
				Update: &types.Update{
					TableName: aws.String(r.tableName),
					Key: map[string]types.AttributeValue{
						"PK": &types.AttributeValueMemberS{Value: vouchee.GetPK()},
						"SK": &types.AttributeValueMemberS{Value: vouchee.GetSK()},
					},
					UpdateExpression:    aws.String("ADD total_vouches :negone"),
					ConditionExpression: aws.String("attribute_exists(PK)"),
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":negone": &types.AttributeValueMemberN{Value: "-1"},
					},
				},
			},
		},
	})

	if err != nil {
		if transactionConditionFailed(err, 0) {
			return ErrVouchNotFound
		}
		r.logger.WithError(err).Error("Failed to delete vouch in DynamoDB")
		return fmt.Errorf("failed to delete vouch: %w", err)
	}

	return nil
}
