package cli

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tcfw/cognitechain/internal/config"
	"github.com/tcfw/cognitechain/internal/node"
	internalStorage "github.com/tcfw/cognitechain/internal/storage"
	"github.com/tcfw/cognitechain/internal/utils/logging"
	"github.com/tcfw/cognitechain/pkg/chain"
	"github.com/tcfw/cognitechain/pkg/storage"
)

var (
	verifyCmd = &cobra.Command{
		Use:   "verify",
		Short: "verify a chain file without a running daemon",
		RunE:  runVerify,
	}

	reindexCmd = &cobra.Command{
		Use:   "reindex",
		Short: "rebuild the balance and history index from the chain file",
		RunE:  runReindex,
	}

	addressCmd = &cobra.Command{
		Use:   "address",
		Short: "generate a random payee address",
		RunE:  runAddress,
	}
)

func init() {
	verifyCmd.Flags().StringP("file", "f", "", "chain file to verify. blank uses the configured chain file")
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := config.GetConfig()
	if err != nil {
		return errors.Wrap(err, "loading config")
	}

	path, _ := cmd.Flags().GetString("file")
	if path == "" {
		path = cfg.Ledger().ChainFile
	}

	c, err := loadVerified(context.Background(), path, cfg.Ledger().MinDifficulty)
	if err != nil {
		return err
	}

	logging.Entry().WithFields(logrus.Fields{
		"file":   path,
		"height": len(c),
	}).Info("chain verified")

	return nil
}

// loadVerified reads an existing chain file and checks every block. A
// missing file is an error here rather than a fresh chain.
func loadVerified(ctx context.Context, path string, minDifficulty int) (chain.Chain, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrap(err, "opening chain file")
	}

	c, err := storage.NewFileStore(path, 1).Load(ctx)
	if err != nil {
		return nil, err
	}

	if err := chain.Verify(c, minDifficulty); err != nil {
		return nil, err
	}

	return c, nil
}

func runReindex(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.GetConfig()
	if err != nil {
		return errors.Wrap(err, "loading config")
	}
	lcfg := cfg.Ledger()

	c, err := loadVerified(ctx, lcfg.ChainFile, lcfg.MinDifficulty)
	if err != nil {
		return err
	}

	if err := reindex(ctx, lcfg.Index.Path, c); err != nil {
		return err
	}

	logging.Entry().WithFields(logrus.Fields{
		"index":  lcfg.Index.Path,
		"height": len(c),
	}).Info("index rebuilt")

	return nil
}

func reindex(ctx context.Context, path string, c chain.Chain) error {
	idx, err := internalStorage.NewPebbleIndex(path)
	if err != nil {
		return errors.Wrap(err, "opening index")
	}
	defer idx.Stop()

	return idx.Rebuild(ctx, c)
}

func runAddress(cmd *cobra.Command, args []string) error {
	a, err := node.NewDisplayAddress(rand.Reader)
	if err != nil {
		return err
	}

	fmt.Println(a)

	return nil
}
