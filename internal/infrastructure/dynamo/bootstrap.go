package dynamo

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/plateping/api/internal/config"
)

// Bootstrap creates the users table and its identity-key GSIs if they don't
// already exist. Safe to call on every startup.
func Bootstrap(ctx context.Context, client *dynamodb.Client, tables config.DynamoTables) {
	createTable(ctx, client, &dynamodb.CreateTableInput{
		TableName:   aws.String(tables.Users),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("user_id"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("phone"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("license_plate"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("line_user_id"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("apple_user_id"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("user_id"), KeyType: types.KeyTypeHash},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			gsi("phone-index", "phone"),
			gsi("license_plate-index", "license_plate"),
			gsi("line_user_id-index", "line_user_id"),
			gsi("apple_user_id-index", "apple_user_id"),
		},
	})
}

func gsi(name, hashAttr string) types.GlobalSecondaryIndex {
	return types.GlobalSecondaryIndex{
		IndexName: aws.String(name),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(hashAttr), KeyType: types.KeyTypeHash},
		},
		Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
	}
}

func createTable(ctx context.Context, client *dynamodb.Client, input *dynamodb.CreateTableInput) {
	_, err := client.CreateTable(ctx, input)
	if err != nil {
		var exists *types.ResourceInUseException
		if errors.As(err, &exists) {
			return
		}
		slog.Warn("create table failed", "table", aws.ToString(input.TableName), "err", err)
		return
	}
	slog.Info("created table", "table", aws.ToString(input.TableName))
}
