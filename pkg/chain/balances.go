package chain

import (
	"math"

	"github.com/pkg/errors"
	"github.com/tcfw/cognitechain/pkg/tx"
)

var (
	ErrBalanceOverflow = errors.New("balance overflows int64")
)

// AddAmount adds a non negative amount to bal, refusing to wrap
func AddAmount(bal, amount int64) (int64, error) {
	if amount < 0 {
		return bal, errors.Errorf("negative amount %d", amount)
	}

	if bal > math.MaxInt64-amount {
		return bal, errors.Wrapf(ErrBalanceOverflow, "%d + %d", bal, amount)
	}

	return bal + amount, nil
}

// Credit applies txs to balances in order. balances is left partially
// updated when an error is returned.
func Credit(balances map[string]int64, txs []tx.Tx) error {
	for i := range txs {
		bal, err := AddAmount(balances[txs[i].Address], txs[i].Amount)
		if err != nil {
			return errors.Wrapf(err, "crediting %s", txs[i].Address)
		}
		balances[txs[i].Address] = bal
	}

	return nil
}

// Project folds every transaction in chain order into a per address total.
// All transaction kinds are credited the same way.
func Project(c Chain) (map[string]int64, error) {
	balances := map[string]int64{}

	for i := range c {
		if err := Credit(balances, c[i].Transactions); err != nil {
			return nil, errors.Wrapf(err, "block %d", c[i].Index)
		}
	}

	return balances, nil
}
