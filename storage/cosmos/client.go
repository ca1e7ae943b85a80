package cosmos

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"
)

// DefaultDatabase is the database used when none is configured.
const DefaultDatabase = "AgentDB"

// Client holds a Cosmos DB account client bound to one database.
type Client struct {
	client   *azcosmos.Client
	database string
	logger   *slog.Logger
}

// Connect creates a client from an account connection string.
func Connect(connectionString, database string) (*Client, error) {
	if connectionString == "" {
		return nil, errors.New("cosmos: connection string is required")
	}
	if database == "" {
		database = DefaultDatabase
	}
	client, err := azcosmos.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("cosmos: invalid connection string: %w", err)
	}
	return &Client{
		client:   client,
		database: database,
		logger:   slog.Default().With("component", "cosmos", "database", database),
	}, nil
}

// ensureDatabase creates the database if it does not exist.
func (c *Client) ensureDatabase(ctx context.Context) (*azcosmos.DatabaseClient, error) {
	_, err := c.client.CreateDatabase(ctx, azcosmos.DatabaseProperties{ID: c.database}, nil)
	if err != nil && !isStatus(err, http.StatusConflict) {
		c.logger.Error("failed to create database", "err", err)
		return nil, fmt.Errorf("failed to create database: %w", err)
	}
	return c.client.NewDatabase(c.database)
}

// Close is a no-op; the SDK client holds no resources that need releasing.
func (c *Client) Close() error {
	return nil
}

func isStatus(err error, code int) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == code
}
