package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/tcfw/cognitechain/internal/api"
	"github.com/tcfw/cognitechain/internal/config"
	"github.com/tcfw/cognitechain/internal/utils/logging"
	"github.com/tcfw/cognitechain/pkg/tx"
	"gopkg.in/yaml.v3"
)

const (
	clientTimeout = 10 * time.Second
	mineTimeout   = 3 * time.Minute
)

var (
	balancesCmd = &cobra.Command{
		Use:   "balances",
		Short: "print every address balance",
		RunE:  runBalances,
	}

	chainCmd = &cobra.Command{
		Use:   "chain",
		Short: "print the chain",
		RunE:  runChain,
	}

	historyCmd = &cobra.Command{
		Use:   "history <address>",
		Short: "print the transactions credited to an address",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistory,
	}

	mineCmd = &cobra.Command{
		Use:   "mine",
		Short: "record a mining reward",
		RunE:  runMine,
	}

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "print the daemon ledger status",
		RunE:  runStatus,
	}
)

func init() {
	chainCmd.Flags().Bool("yaml", false, "print as yaml")
	chainCmd.Flags().Uint64("from", 0, "first block to print")

	mineCmd.Flags().String("address", "", "address to credit")
	mineCmd.Flags().Int64("blocks", 1, "blocks mined")
	mineCmd.Flags().Int64("score", 0, "game score")
	mineCmd.MarkFlagRequired("address")
}

func ledgerClient() (*api.Client, *api.LedgerClient, error) {
	c, err := api.NewClient()
	if err != nil {
		return nil, nil, errors.Wrap(err, "constructing client")
	}

	return c, c.Ledger(), nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runBalances(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), clientTimeout)
	defer cancel()

	c, lc, err := ledgerClient()
	if err != nil {
		return err
	}
	defer c.Close()

	res, err := lc.Balances(ctx, &api.BalancesRequest{})
	if err != nil {
		return errors.Wrap(err, "fetching balances")
	}

	return printJSON(res.Balances)
}

func runChain(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), clientTimeout)
	defer cancel()

	asYAML, _ := cmd.Flags().GetBool("yaml")
	from, _ := cmd.Flags().GetUint64("from")

	c, lc, err := ledgerClient()
	if err != nil {
		return err
	}
	defer c.Close()

	res, err := lc.Chain(ctx, &api.ChainRequest{From: from})
	if err != nil {
		return errors.Wrap(err, "fetching chain")
	}

	if !asYAML {
		return printJSON(res.Blocks)
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()

	return enc.Encode(res.Blocks)
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), clientTimeout)
	defer cancel()

	c, lc, err := ledgerClient()
	if err != nil {
		return err
	}
	defer c.Close()

	res, err := lc.History(ctx, &api.HistoryRequest{Address: args[0]})
	if err != nil {
		return errors.Wrap(err, "fetching history")
	}

	return printJSON(res.Entries)
}

func runMine(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), mineTimeout)
	defer cancel()

	address, _ := cmd.Flags().GetString("address")
	blocks, _ := cmd.Flags().GetInt64("blocks")
	score, _ := cmd.Flags().GetInt64("score")

	rewards := tx.DefaultRewards
	if cfg, err := config.GetConfig(); err == nil {
		rewards = cfg.Ledger().Rewards
	}

	t, err := rewards.NewMining(address, blocks, score)
	if err != nil {
		return err
	}
	if err := t.Validate(); err != nil {
		return err
	}

	c, lc, err := ledgerClient()
	if err != nil {
		return err
	}
	defer c.Close()

	logging.Entry().WithField("address", address).WithField("amount", t.Amount).Debug("recording mining reward")

	res, err := lc.Record(ctx, &api.RecordRequest{Tx: *t})
	if err != nil {
		return errors.Wrap(err, "recording reward")
	}

	fmt.Printf("block %d %s (nonce %d)\n", res.Index, res.Hash, res.Nonce)

	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), clientTimeout)
	defer cancel()

	c, lc, err := ledgerClient()
	if err != nil {
		return err
	}
	defer c.Close()

	res, err := lc.Status(ctx, &api.StatusRequest{})
	if err != nil {
		return errors.Wrap(err, "fetching status")
	}

	return printJSON(res)
}
