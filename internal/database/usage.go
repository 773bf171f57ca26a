package database

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imyashkale/sitebuilder/internal/logger"
	"github.com/imyashkale/sitebuilder/internal/models"
)

// UsageOperations appends and reads model usage rows
type UsageOperations struct {
	client    *Client
	tableName string
}

// NewUsageOperations creates a new UsageOperations instance
func NewUsageOperations(client *Client, tableName string) *UsageOperations {
	return &UsageOperations{
		client:    client,
		tableName: tableName,
	}
}

// CreateUsage appends one usage row. Rows are never updated.
func (uo *UsageOperations) CreateUsage(ctx context.Context, usage *models.UsageRecord) error {
	av, err := attributevalue.MarshalMap(usage)
	if err != nil {
		return fmt.Errorf("failed to marshal usage: %w", err)
	}
	av["CreatedAt"] = &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", usage.CreatedAt.Unix())}

	_, err = uo.client.DynamoDB.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(uo.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(Id)"),
	})
	if err != nil {
		return fmt.Errorf("failed to create usage record: %w", err)
	}

	logger.WithFields(map[string]interface{}{
		"usage_id":  usage.Id,
		"operation": usage.Operation,
	}).Debug("Usage record stored in DynamoDB")
	return nil
}

// GetUsageByEntity returns every usage row attributed to an entity
func (uo *UsageOperations) GetUsageByEntity(ctx context.Context, entityType, entityId string) ([]*models.UsageRecord, error) {
	paginator := dynamodb.NewScanPaginator(uo.client.DynamoDB, &dynamodb.ScanInput{
		TableName:        aws.String(uo.tableName),
		FilterExpression: aws.String("EntityType = :entityType AND EntityId = :entityId"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":entityType": &types.AttributeValueMemberS{Value: entityType},
			":entityId":   &types.AttributeValueMemberS{Value: entityId},
		},
	})

	records := make([]*models.UsageRecord, 0)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan usage by entity: %w", err)
		}
		for _, item := range page.Items {
			var temp struct {
				models.UsageRecord
				CreatedAt int64 `dynamodbav:"CreatedAt"`
			}
			if err := attributevalue.UnmarshalMap(item, &temp); err != nil {
				return nil, fmt.Errorf("failed to unmarshal usage: %w", err)
			}
			record := temp.UsageRecord
			record.CreatedAt = time.Unix(temp.CreatedAt, 0)
			records = append(records, &record)
		}
	}

	return records, nil
}
