package database

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

	"github.com/imyashkale/sitebuilder/internal/logger"
	"github.com/imyashkale/sitebuilder/internal/models"
)

// SiteOperations handles all DynamoDB operations for site builds
type SiteOperations struct {
	client    *Client
	tableName string
}

// NewSiteOperations creates a new SiteOperations instance
func NewSiteOperations(client *Client, tableName string) *SiteOperations {
	return &SiteOperations{
		client:    client,
		tableName: tableName,
	}
}

// siteItem is the stored shape of a SiteBuild; timestamps are unix seconds
type siteItem struct {
	SiteId       string                              `dynamodbav:"SiteId"`
	OwnerId      string                              `dynamodbav:"OwnerId,omitempty"`
	OwnerName    string                              `dynamodbav:"OwnerName,omitempty"`
	BusinessName string                              `dynamodbav:"BusinessName,omitempty"`
	ProjectName  string                              `dynamodbav:"ProjectName,omitempty"`
	ProjectId    string                              `dynamodbav:"ProjectId,omitempty"`
	DeploymentId string                              `dynamodbav:"DeploymentId,omitempty"`
	URL          string                              `dynamodbav:"URL,omitempty"`
	ReadyState   string                              `dynamodbav:"ReadyState,omitempty"`
	Status       string                              `dynamodbav:"Status"`
	ErrorKind    string                              `dynamodbav:"ErrorKind,omitempty"`
	Error        string                              `dynamodbav:"Error,omitempty"`
	WaitForReady bool                                `dynamodbav:"WaitForReady"`
	Stages       map[string]*models.BuildStageStatus `dynamodbav:"Stages,omitempty"`
	BuildLogs    []models.BuildLogEntry              `dynamodbav:"Logs,omitempty"`
	ArchiveKey   string                              `dynamodbav:"ArchiveKey,omitempty"`
	Revision     int                                 `dynamodbav:"Revision"`
	CreatedAt    int64                               `dynamodbav:"CreatedAt"`
	UpdatedAt    int64                               `dynamodbav:"UpdatedAt"`
}

func toSiteItem(site *models.SiteBuild) siteItem {
	return siteItem{
		SiteId:       site.SiteId,
		OwnerId:      site.OwnerId,
		OwnerName:    site.OwnerName,
		BusinessName: site.BusinessName,
		ProjectName:  site.ProjectName,
		ProjectId:    site.ProjectId,
		DeploymentId: site.DeploymentId,
		URL:          site.URL,
		ReadyState:   string(site.ReadyState),
		Status:       site.Status,
		ErrorKind:    site.ErrorKind,
		Error:        site.Error,
		WaitForReady: site.WaitForReady,
		Stages:       site.Stages,
		BuildLogs:    site.BuildLogs,
		ArchiveKey:   site.ArchiveKey,
		Revision:     site.Revision,
		CreatedAt:    site.CreatedAt.Unix(),
		UpdatedAt:    site.UpdatedAt.Unix(),
	}
}

func (i siteItem) toModel() *models.SiteBuild {
	return &models.SiteBuild{
		SiteId:       i.SiteId,
		OwnerId:      i.OwnerId,
		OwnerName:    i.OwnerName,
		BusinessName: i.BusinessName,
		ProjectName:  i.ProjectName,
		ProjectId:    i.ProjectId,
		DeploymentId: i.DeploymentId,
		URL:          i.URL,
		ReadyState:   models.ReadyState(i.ReadyState),
		Status:       i.Status,
		ErrorKind:    i.ErrorKind,
		Error:        i.Error,
		WaitForReady: i.WaitForReady,
		Stages:       i.Stages,
		BuildLogs:    i.BuildLogs,
		ArchiveKey:   i.ArchiveKey,
		Revision:     i.Revision,
		CreatedAt:    time.Unix(i.CreatedAt, 0),
		UpdatedAt:    time.Unix(i.UpdatedAt, 0),
	}
}

// CreateSite stores a new site build, failing if the id is taken
func (so *SiteOperations) CreateSite(ctx context.Context, site *models.SiteBuild) error {
	logger.WithFields(map[string]interface{}{
		"site_id":  site.SiteId,
		"owner_id": site.OwnerId,
	}).Debug("Creating site in DynamoDB")

	av, err := attributevalue.MarshalMap(toSiteItem(site))
	if err != nil {
		return fmt.Errorf("failed to marshal site: %w", err)
	}

	_, err = so.client.DynamoDB.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(so.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(SiteId)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrAlreadyExists
		}
		logger.WithFields(map[string]interface{}{
			"site_id": site.SiteId,
			"error":   err.Error(),
		}).Error("Failed to create site in DynamoDB")
		return fmt.Errorf("failed to create site: %w", err)
	}

	logger.WithField("site_id", site.SiteId).Info("Site created successfully in DynamoDB")
	return nil
}

// GetSite retrieves a site build by id
func (so *SiteOperations) GetSite(ctx context.Context, siteId string) (*models.SiteBuild, error) {
	result, err := so.client.DynamoDB.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(so.tableName),
		Key: map[string]types.AttributeValue{
			"SiteId": &types.AttributeValueMemberS{Value: siteId},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get site: %w", err)
	}

	if result.Item == nil {
		logger.WithField("site_id", siteId).Warn("Site not found in DynamoDB")
		return nil, ErrNotFound
	}

	var item siteItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal site: %w", err)
	}

	return item.toModel(), nil
}

// UpdateSite writes every mutable field of an existing site build
func (so *SiteOperations) UpdateSite(ctx context.Context, site *models.SiteBuild) error {
	logger.WithFields(map[string]interface{}{
		"site_id": site.SiteId,
		"status":  site.Status,
	}).Debug("Updating site in DynamoDB")

	stagesAv, err := attributevalue.Marshal(site.Stages)
	if err != nil {
		return fmt.Errorf("failed to marshal stages: %w", err)
	}
	logsAv, err := attributevalue.Marshal(site.BuildLogs)
	if err != nil {
		return fmt.Errorf("failed to marshal logs: %w", err)
	}

	updateExpr := "SET #status = :status, #stages = :stages, #logs = :logs, ProjectName = :projectName, " +
		"ProjectId = :projectId, DeploymentId = :deploymentId, #url = :url, ReadyState = :readyState, " +
		"ErrorKind = :errorKind, #error = :error, ArchiveKey = :archiveKey, Revision = :revision, " +
		"BusinessName = :businessName, UpdatedAt = :updated_at"

	_, err = so.client.DynamoDB.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(so.tableName),
		Key: map[string]types.AttributeValue{
			"SiteId": &types.AttributeValueMemberS{Value: site.SiteId},
		},
		UpdateExpression: aws.String(updateExpr),
		ExpressionAttributeNames: map[string]string{
			"#status": "Status",
			"#stages": "Stages",
			"#logs":   "Logs",
			"#url":    "URL",
			"#error":  "Error",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status":       &types.AttributeValueMemberS{Value: site.Status},
			":stages":       stagesAv,
			":logs":         logsAv,
			":projectName":  &types.AttributeValueMemberS{Value: site.ProjectName},
			":projectId":    &types.AttributeValueMemberS{Value: site.ProjectId},
			":deploymentId": &types.AttributeValueMemberS{Value: site.DeploymentId},
			":url":          &types.AttributeValueMemberS{Value: site.URL},
			":readyState":   &types.AttributeValueMemberS{Value: string(site.ReadyState)},
			":errorKind":    &types.AttributeValueMemberS{Value: site.ErrorKind},
			":error":        &types.AttributeValueMemberS{Value: site.Error},
			":archiveKey":   &types.AttributeValueMemberS{Value: site.ArchiveKey},
			":revision":     &types.AttributeValueMemberN{Value: strconv.Itoa(site.Revision)},
			":businessName": &types.AttributeValueMemberS{Value: site.BusinessName},
			":updated_at":   &types.AttributeValueMemberN{Value: strconv.FormatInt(site.UpdatedAt.Unix(), 10)},
		},
		ConditionExpression: aws.String("attribute_exists(SiteId)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			logger.WithField("site_id", site.SiteId).Warn("Site not found during update")
			return ErrNotFound
		}
		logger.WithFields(map[string]interface{}{
			"site_id": site.SiteId,
			"error":   err.Error(),
		}).Error("Failed to update site in DynamoDB")
		return fmt.Errorf("failed to update site: %w", err)
	}

	logger.WithFields(map[string]interface{}{
		"site_id": site.SiteId,
		"status":  site.Status,
	}).Info("Site updated successfully in DynamoDB")
	return nil
}

// GetSitesByOwnerId retrieves all site builds for an owning record
func (so *SiteOperations) GetSitesByOwnerId(ctx context.Context, ownerId string) ([]*models.SiteBuild, error) {
	paginator := dynamodb.NewScanPaginator(so.client.DynamoDB, &dynamodb.ScanInput{
		TableName:        aws.String(so.tableName),
		FilterExpression: aws.String("OwnerId = :ownerId"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ownerId": &types.AttributeValueMemberS{Value: ownerId},
		},
	})

	sites := make([]*models.SiteBuild, 0)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sites by owner_id: %w", err)
		}
		for _, av := range page.Items {
			var item siteItem
			if err := attributevalue.UnmarshalMap(av, &item); err != nil {
				return nil, fmt.Errorf("failed to unmarshal site: %w", err)
			}
			sites = append(sites, item.toModel())
		}
	}

	return sites, nil
}
