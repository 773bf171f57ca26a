package database

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imyashkale/sitebuilder/internal/models"
)

// ProspectOperations reads owning business records
type ProspectOperations struct {
	client    *Client
	tableName string
}

// NewProspectOperations creates a new ProspectOperations instance
func NewProspectOperations(client *Client, tableName string) *ProspectOperations {
	return &ProspectOperations{
		client:    client,
		tableName: tableName,
	}
}

// GetProspect retrieves a prospect by id
func (po *ProspectOperations) GetProspect(ctx context.Context, id string) (*models.Prospect, error) {
	result, err := po.client.DynamoDB.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(po.tableName),
		Key: map[string]types.AttributeValue{
			"Id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get prospect: %w", err)
	}

	if result.Item == nil {
		return nil, ErrNotFound
	}

	var prospect models.Prospect
	if err := attributevalue.UnmarshalMap(result.Item, &prospect); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prospect: %w", err)
	}

	return &prospect, nil
}
