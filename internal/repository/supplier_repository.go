package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"
	"github.com/supplierhub/supplierhub/internal/models"
)

var ErrEmailTaken = errors.New("email already registered")

const (
	supplierCounterPK = "COUNTER#SUPPLIER"
	metadataSK        = "METADATA"
)

type SupplierRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *logrus.Logger
}

func NewSupplierRepository(client *dynamodb.Client, tableName string, logger *logrus.Logger) *SupplierRepository {
	return &SupplierRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

func emailPK(email string) string {
	return "SUPPLIEREMAIL#" + email
}

// nextID allocates a supplier id from an atomic counter item.
func (r *SupplierRepository) nextID(ctx context.Context) (int64, error) {
	result, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: supplierCounterPK},
			"SK": &types.AttributeValueMemberS{Value: metadataSK},
		},
		UpdateExpression: aws.String("ADD #v :one"),
		ExpressionAttributeNames: map[string]string{
			"#v": "Value",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to allocate supplier id")
		return 0, fmt.Errorf("failed to allocate supplier id: %w", err)
	}

	attr, ok := result.Attributes["Value"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("unexpected counter attribute type")
	}

	id, err := strconv.ParseInt(attr.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse counter value: %w", err)
	}

	return id, nil
}

// Create allocates an id and writes the supplier item together with an email
// claim item in one transaction. The conditional put on the email claim
// enforces email uniqueness; losing that race returns ErrEmailTaken.
func (r *SupplierRepository) Create(ctx context.Context, supplier *models.Supplier) error {
	id, err := r.nextID(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	supplier.ID = id
	supplier.CreatedAt = now
	supplier.UpdatedAt = now

	item, err := attributevalue.MarshalMap(supplier)
	if err != nil {
		r.logger.WithError(err).Error("Failed to marshal supplier for DynamoDB")
		return fmt.Errorf("failed to marshal supplier: %w", err)
	}
	item["PK"] = &types.AttributeValueMemberS{Value: supplier.GetPK()}
	item["SK"] = &types.AttributeValueMemberS{Value: supplier.GetSK()}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName: aws.String(r.tableName),
					Item: map[string]types.AttributeValue{
						"PK":         &types.AttributeValueMemberS{Value: emailPK(supplier.Email)},
						"SK":         &types.AttributeValueMemberS{Value: metadataSK},
						"SupplierID": &types.AttributeValueMemberN{Value: strconv.FormatInt(id, 10)},
					},
					ConditionExpression: aws.String("attribute_not_exists(PK)"),
				},
			},
			{
				Put: &types.Put{
					TableName: aws.String(r.tableName),
					Item:      item,
				},
			},
		},
	})

	if err != nil {
		if transactionConditionFailed(err, 0) {
			return ErrEmailTaken
		}
		r.logger.WithError(err).Error("Failed to create supplier in DynamoDB")
		return fmt.Errorf("failed to create supplier: %w", err)
	}

	return nil
}

// GetByID returns (nil, nil) when the supplier does not exist.
func (r *SupplierRepository) GetByID(ctx context.Context, id int64) (*models.Supplier, error) {
	lookup := &models.Supplier{ID: id}

	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: lookup.GetPK()},
			"SK": &types.AttributeValueMemberS{Value: lookup.GetSK()},
		},
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to get supplier from DynamoDB")
		return nil, fmt.Errorf("failed to get supplier: %w", err)
	}

	if result.Item == nil {
		return nil, nil
	}

	var supplier models.Supplier
	if err := attributevalue.UnmarshalMap(result.Item, &supplier); err != nil {
		r.logger.WithError(err).Error("Failed to unmarshal supplier from DynamoDB")
		return nil, fmt.Errorf("failed to unmarshal supplier: %w", err)
	}

	return &supplier, nil
}

// GetByEmail resolves the email claim item to a supplier. Returns (nil, nil)
// when no supplier registered that email.
func (r *SupplierRepository) GetByEmail(ctx context.Context, email string) (*models.Supplier, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: emailPK(email)},
			"SK": &types.AttributeValueMemberS{Value: metadataSK},
		},
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to look up supplier email")
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}

	if result.Item == nil {
		return nil, nil
	}

	attr, ok := result.Item["SupplierID"].(*types.AttributeValueMemberN)
	if !ok {
		return nil, fmt.Errorf("unexpected email item shape")
	}

	id, err := strconv.ParseInt(attr.Value, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse supplier id: %w", err)
	}

	return r.GetByID(ctx, id)
}

// transactionConditionFailed reports whether the transaction was cancelled
// because the condition on item idx failed.
func transactionConditionFailed(err error, idx int) bool {
	var cancelled *types.TransactionCanceledException
	if !errors.As(err, &cancelled) {
		return false
	}
	if idx >= len(cancelled.CancellationReasons) {
		return false
	}
	return aws.ToString(cancelled.CancellationReasons[idx].Code) == "ConditionalCheckFailed"
}
