package api

import (
	"context"

	"github.com/pkg/errors"
	"github.com/tcfw/cognitechain/internal/utils/logging"
	"github.com/tcfw/cognitechain/pkg/chain"
	"github.com/tcfw/cognitechain/pkg/ledger"
	"github.com/tcfw/cognitechain/pkg/tx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	ledgerServiceName = "cognitechain.Ledger"
)

func init() {
	reg = append(reg, &ledgerApi{})
}

type LedgerServer interface {
	Record(context.Context, *RecordRequest) (*RecordResponse, error)
	Balances(context.Context, *BalancesRequest) (*BalancesResponse, error)
	Chain(context.Context, *ChainRequest) (*ChainResponse, error)
	History(context.Context, *HistoryRequest) (*HistoryResponse, error)
	Status(context.Context, *StatusRequest) (*StatusResponse, error)
}

var Ledger_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ledgerServiceName,
	HandlerType: (*LedgerServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("Record", func() interface{} { return &RecordRequest{} },
			func(s LedgerServer, ctx context.Context, req interface{}) (interface{}, error) {
				return s.Record(ctx, req.(*RecordRequest))
			}),
		unaryMethod("Balances", func() interface{} { return &BalancesRequest{} },
			func(s LedgerServer, ctx context.Context, req interface{}) (interface{}, error) {
				return s.Balances(ctx, req.(*BalancesRequest))
			}),
		unaryMethod("Chain", func() interface{} { return &ChainRequest{} },
			func(s LedgerServer, ctx context.Context, req interface{}) (interface{}, error) {
				return s.Chain(ctx, req.(*ChainRequest))
			}),
		unaryMethod("History", func() interface{} { return &HistoryRequest{} },
			func(s LedgerServer, ctx context.Context, req interface{}) (interface{}, error) {
				return s.History(ctx, req.(*HistoryRequest))
			}),
		unaryMethod("Status", func() interface{} { return &StatusRequest{} },
			func(s LedgerServer, ctx context.Context, req interface{}) (interface{}, error) {
				return s.Status(ctx, req.(*StatusRequest))
			}),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "cognitechain/ledger",
}

func fullMethod(name string) string {
	return "/" + ledgerServiceName + "/" + name
}

func unaryMethod(name string, newReq func() interface{}, call func(LedgerServer, context.Context, interface{}) (interface{}, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := newReq()
			if err := dec(in); err != nil {
				return nil, err
			}

			if interceptor == nil {
				return call(srv.(LedgerServer), ctx, in)
			}

			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod(name),
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(LedgerServer), ctx, req)
			}

			return interceptor(ctx, in, info, handler)
		},
	}
}

type ledgerApi struct {
	BaseHandler
}

func (la *ledgerApi) Desc() *grpc.ServiceDesc {
	return &Ledger_ServiceDesc
}

func (la *ledgerApi) ledger() *ledger.Ledger {
	return la.a.n.Ledger()
}

func (la *ledgerApi) Record(ctx context.Context, req *RecordRequest) (*RecordResponse, error) {
	b, err := la.ledger().AppendTransactions(ctx, []tx.Tx{req.Tx})
	if err != nil {
		logging.WithError(err).Error("recording tx")
		return nil, toStatus(err)
	}

	return &RecordResponse{Index: b.Index, Hash: b.Hash, Nonce: b.Nonce}, nil
}

func (la *ledgerApi) Balances(ctx context.Context, req *BalancesRequest) (*BalancesResponse, error) {
	return &BalancesResponse{Balances: la.ledger().Balances()}, nil
}

func (la *ledgerApi) Chain(ctx context.Context, req *ChainRequest) (*ChainResponse, error) {
	c := la.ledger().Snapshot()
	if req.From >= uint64(len(c)) {
		return &ChainResponse{Blocks: chain.Chain{}}, nil
	}

	return &ChainResponse{Blocks: c[req.From:]}, nil
}

func (la *ledgerApi) History(ctx context.Context, req *HistoryRequest) (*HistoryResponse, error) {
	if req.Address == "" {
		return nil, status.Error(codes.InvalidArgument, "address required")
	}

	h, err := la.ledger().History(ctx, req.Address)
	if err != nil {
		return nil, toStatus(err)
	}

	return &HistoryResponse{Entries: h}, nil
}

func (la *ledgerApi) Status(ctx context.Context, req *StatusRequest) (*StatusResponse, error) {
	l := la.ledger()

	res := &StatusResponse{
		Height:     l.Height(),
		Difficulty: l.Difficulty(),
	}

	if tip := l.Tip(); tip != nil {
		res.Tip = tip.Hash
	}

	if err := l.Verify(); err != nil {
		res.VerifyError = err.Error()
	}

	return res, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, tx.ErrInvalidTransaction):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, chain.ErrMiningTimeout):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
