package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	appConfig "github.com/imyashkale/sitebuilder/internal/config"
	"github.com/imyashkale/sitebuilder/internal/logger"
)

var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned when creating a record whose key is taken
	ErrAlreadyExists = errors.New("record already exists")
)

// API is the subset of the DynamoDB client the operations use
type API interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Config holds the DynamoDB configuration
type Config struct {
	SitesTable     string
	UsageTable     string
	ProspectsTable string
	Region         string
}

// Client wraps the DynamoDB client
type Client struct {
	DynamoDB API
	tables   []string
}

// NewConfig creates a new database configuration from the application config
func NewConfig(appCfg *appConfig.Config) *Config {
	return &Config{
		SitesTable:     appCfg.DynamoDBSitesTable,
		UsageTable:     appCfg.DynamoDBUsageTable,
		ProspectsTable: appCfg.DynamoDBProspectsTable,
		Region:         appCfg.AWSRegion,
	}
}

// NewClient creates a new DynamoDB client
func NewClient(ctx context.Context, cfg *Config) (*Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}

	client := &Client{
		DynamoDB: dynamodb.NewFromConfig(awsCfg),
		tables:   []string{cfg.SitesTable, cfg.UsageTable, cfg.ProspectsTable},
	}

	for _, table := range client.tables {
		if err := client.ensureTableExists(ctx, table); err != nil {
			logger.Warnf("Could not verify table existence: %v", err)
		}
	}

	return client, nil
}

// ensureTableExists checks if the DynamoDB table exists
func (c *Client) ensureTableExists(ctx context.Context, tableName string) error {
	_, err := c.DynamoDB.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(tableName),
	})
	if err != nil {
		return fmt.Errorf("table %s does not exist or cannot be accessed: %w", tableName, err)
	}

	logger.Infof("DynamoDB table '%s' verified successfully", tableName)
	return nil
}

// Ping checks that every configured table can be described
func (c *Client) Ping(ctx context.Context) error {
	for _, table := range c.tables {
		if _, err := c.DynamoDB.DescribeTable(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(table),
		}); err != nil {
			return fmt.Errorf("table %s: %w", table, err)
		}
	}
	return nil
}
