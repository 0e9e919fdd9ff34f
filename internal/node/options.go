package node

import (
	"github.com/sirupsen/logrus"
	"github.com/tcfw/cognitechain/internal/config"
	"github.com/tcfw/cognitechain/pkg/ledger"
	"github.com/tcfw/cognitechain/pkg/storage"
)

type NodeOption func(*Node) error

func WithConfig(c *config.Config) NodeOption {
	return func(n *Node) error {
		n.cfg = c
		return nil
	}
}

// WithLedger uses an already loaded ledger instead of opening one from config
func WithLedger(l *ledger.Ledger) NodeOption {
	return func(n *Node) error {
		n.ledger = l
		return nil
	}
}

func WithIndex(idx storage.Index) NodeOption {
	return func(n *Node) error {
		n.index = idx
		return nil
	}
}

func WithLogger(l *logrus.Logger) NodeOption {
	return func(n *Node) error {
		n.logger = l
		return nil
	}
}

func WithDefaultOptions() NodeOption {
	return func(n *Node) error {
		n.logger = logrus.StandardLogger()
		return nil
	}
}
