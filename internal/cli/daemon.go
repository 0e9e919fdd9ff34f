package cli

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tcfw/cognitechain/internal/api"
	"github.com/tcfw/cognitechain/internal/config"
	"github.com/tcfw/cognitechain/internal/gateway"
	"github.com/tcfw/cognitechain/internal/node"
	"github.com/tcfw/cognitechain/internal/utils/logging"
)

const shutdownTimeout = 10 * time.Second

var (
	daemonCmd = &cobra.Command{
		Use:   "daemon",
		RunE:  runDaemon,
		Short: "run the ledger daemon",
	}
)

func init() {
	daemonCmd.Flags().IntP("api-port", "p", 8080, "admin api port")
	viper.BindPFlag(config.Cfg_api_port, daemonCmd.Flags().Lookup("api-port"))

	daemonCmd.Flags().String("http-addr", ":3001", "game gateway listen address")
	viper.BindPFlag(config.Cfg_http_addr, daemonCmd.Flags().Lookup("http-addr"))
}

func runDaemon(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.GetConfig()
	if err != nil {
		return errors.Wrap(err, "loading config")
	}

	n, err := node.NewNode(ctx,
		node.WithDefaultOptions(),
		node.WithConfig(cfg),
	)
	if err != nil {
		return errors.Wrap(err, "initing node")
	}

	errCh := make(chan error, 2)

	gw, err := gateway.New(n, cfg.HTTP())
	if err != nil {
		n.Stop()
		return err
	}

	go func() {
		if err := gw.ListenAndServe(); err != nil {
			errCh <- errors.Wrap(err, "http gateway")
		}
	}()

	a, err := api.NewAPI(n)
	if err != nil {
		n.Stop()
		return err
	}

	go func() {
		logging.Entry().WithField("port", cfg.APIPort).Info("Starting CLI API")
		if err := a.ListenAndServe(&net.TCPAddr{Port: cfg.APIPort}); err != nil {
			errCh <- errors.Wrap(err, "admin api")
		}
	}()

	select {
	case err = <-errCh:
	case <-waitExit():
	}

	sctx, scancel := context.WithTimeout(ctx, shutdownTimeout)
	defer scancel()

	gw.Shutdown(sctx)
	a.Shutdown(sctx)

	if serr := n.Stop(); serr != nil && err == nil {
		err = serr
	}

	return err
}

func waitExit() <-chan os.Signal {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	return sigs
}
