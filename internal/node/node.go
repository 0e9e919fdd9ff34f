package node

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/tcfw/cognitechain/internal/config"
	internalStorage "github.com/tcfw/cognitechain/internal/storage"
	"github.com/tcfw/cognitechain/pkg/ledger"
	"github.com/tcfw/cognitechain/pkg/storage"
	"github.com/tcfw/cognitechain/pkg/tx"
)

type Node struct {
	cfg    *config.Config
	ledger *ledger.Ledger
	index  storage.Index

	logger *logrus.Logger
}

func (n *Node) Ledger() *ledger.Ledger {
	return n.ledger
}

func (n *Node) Config() *config.Config {
	return n.cfg
}

// Rewards is the amount credited per transaction kind
func (n *Node) Rewards() tx.Rewards {
	if n.cfg == nil {
		return tx.DefaultRewards
	}

	return n.cfg.Ledger().Rewards
}

func (n *Node) Logger() *logrus.Logger {
	return n.logger
}

func NewNode(ctx context.Context, opts ...NodeOption) (*Node, error) {
	n := &Node{}

	for _, opt := range opts {
		if err := opt(n); err != nil {
			return nil, err
		}
	}

	if n.logger == nil {
		n.logger = logrus.StandardLogger()
	}

	if n.ledger != nil {
		return n, nil
	}

	if n.cfg == nil {
		cfg, err := config.GetConfig()
		if err != nil {
			return nil, err
		}
		n.cfg = cfg
	}

	if err := n.openLedger(ctx); err != nil {
		n.Stop()
		return nil, err
	}

	return n, nil
}

func (n *Node) openLedger(ctx context.Context) error {
	lcfg := n.cfg.Ledger()

	if n.index == nil && lcfg.Index.Enabled {
		idx, err := internalStorage.NewPebbleIndex(lcfg.Index.Path)
		if err != nil {
			return errors.Wrap(err, "opening index")
		}
		n.index = idx
	}

	opts := []ledger.Option{
		ledger.WithDifficulty(lcfg.Difficulty),
		ledger.WithMinDifficulty(lcfg.MinDifficulty),
		ledger.WithMaxAttempts(lcfg.MaxAttempts),
		ledger.WithMiningTimeout(lcfg.MiningTimeout),
		ledger.WithLogger(n.logger.WithField("component", "ledger")),
	}

	if n.index != nil {
		opts = append(opts, ledger.WithIndex(n.index))
	}

	store := storage.NewFileStore(lcfg.ChainFile, lcfg.PersistRetries)

	l, err := ledger.New(ctx, store, opts...)
	if err != nil {
		return errors.Wrap(err, "opening ledger")
	}
	n.ledger = l

	n.logger.WithFields(logrus.Fields{
		"chain":      lcfg.ChainFile,
		"height":     l.Height(),
		"difficulty": lcfg.Difficulty,
	}).Info("ledger ready")

	return nil
}

func (n *Node) Stop() error {
	n.logger.Warn("Shutting down")

	if n.index != nil {
		if err := n.index.Stop(); err != nil {
			return errors.Wrap(err, "closing index")
		}
	}

	return nil
}
