package codec

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/engine"
)

// #region client-struct
// Client wraps the gRPC connection to a remote estimator service.
type Client struct {
	conn   *grpc.ClientConn
	client EstimatorClient
}

// #endregion client-struct

// #region constructor
// NewClient connects to an estimator service.
func NewClient(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{
		conn:   conn,
		client: NewEstimatorClient(conn),
	}, nil
}

// NewClientWithService creates a Client with an injected service implementation.
// Used for testing without a real gRPC connection.
func NewClientWithService(svc EstimatorClient) *Client {
	return &Client{client: svc}
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region estimate
// Estimate requests one evaluation.
func (c *Client) Estimate(ctx context.Context, req EstimateRequest) (EstimateResponse, error) {
	in, err := toStruct(req)
	if err != nil {
		return EstimateResponse{}, err
	}
	out, err := c.client.Estimate(ctx, in)
	if err != nil {
		return EstimateResponse{}, fmt.Errorf("estimate rpc: %w", err)
	}
	var resp EstimateResponse
	if err := fromStruct(out, &resp); err != nil {
		return EstimateResponse{}, err
	}
	return resp, nil
}

// #endregion estimate

// #region timeline
// Timeline requests evaluations over a range.
func (c *Client) Timeline(ctx context.Context, req TimelineRequest) ([]engine.Result, error) {
	in, err := toStruct(req)
	if err != nil {
		return nil, err
	}
	out, err := c.client.Timeline(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("timeline rpc: %w", err)
	}
	var resp TimelineResponse
	if err := fromStruct(out, &resp); err != nil {
		return nil, err
	}
	return resp.Points, nil
}

// #endregion timeline
