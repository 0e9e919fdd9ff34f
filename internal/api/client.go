package api

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"github.com/tcfw/cognitechain/internal/config"
	"google.golang.org/grpc"
)

type Client struct {
	cc *grpc.ClientConn
}

func (a *Client) Close() error {
	return a.cc.Close()
}

func (a *Client) Ledger() *LedgerClient {
	return &LedgerClient{cc: a.cc}
}

func NewClient() (*Client, error) {
	return Dial(viper.GetString(config.Cfg_daemon_addr))
}

func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithInsecure(),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	}, opts...)

	cc, err := grpc.Dial(addr, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to daemon")
	}

	return &Client{cc: cc}, nil
}

type LedgerClient struct {
	cc *grpc.ClientConn
}

func (c *LedgerClient) Record(ctx context.Context, req *RecordRequest) (*RecordResponse, error) {
	out := &RecordResponse{}
	if err := c.cc.Invoke(ctx, fullMethod("Record"), req, out); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *LedgerClient) Balances(ctx context.Context, req *BalancesRequest) (*BalancesResponse, error) {
	out := &BalancesResponse{}
	if err := c.cc.Invoke(ctx, fullMethod("Balances"), req, out); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *LedgerClient) Chain(ctx context.Context, req *ChainRequest) (*ChainResponse, error) {
	out := &ChainResponse{}
	if err := c.cc.Invoke(ctx, fullMethod("Chain"), req, out); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *LedgerClient) History(ctx context.Context, req *HistoryRequest) (*HistoryResponse, error) {
	out := &HistoryResponse{}
	if err := c.cc.Invoke(ctx, fullMethod("History"), req, out); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *LedgerClient) Status(ctx context.Context, req *StatusRequest) (*StatusResponse, error) {
	out := &StatusResponse{}
	if err := c.cc.Invoke(ctx, fullMethod("Status"), req, out); err != nil {
		return nil, err
	}

	return out, nil
}
