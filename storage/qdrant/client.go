// Package qdrant provides a VectorStore backed by a Qdrant server over gRPC.
package qdrant

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// DefaultAddress is the Qdrant gRPC endpoint used when none is configured.
const DefaultAddress = "localhost:6334"

// Client holds one gRPC connection shared by every collection store.
type Client struct {
	conn   *grpc.ClientConn
	apiKey string
	logger *slog.Logger
}

// Connect opens a connection to the Qdrant gRPC endpoint at addr.
// The connection is established lazily on first use.
func Connect(addr, apiKey string) (*Client, error) {
	if addr == "" {
		addr = DefaultAddress
	}
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant at %s: %w", addr, err)
	}
	return &Client{
		conn:   conn,
		apiKey: apiKey,
		logger: slog.Default().With("component", "qdrant", "addr", addr),
	}, nil
}

// outgoing attaches the API key, if any, to ctx.
func (c *Client) outgoing(ctx context.Context) context.Context {
	if c.apiKey == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "api-key", c.apiKey)
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
