package gateway

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/tcfw/cognitechain/internal/config"
	"github.com/tcfw/cognitechain/internal/node"
)

const (
	readHeaderTimeout = 10 * time.Second
)

// Gateway translates the game and upload HTTP API into ledger operations
type Gateway struct {
	n      *node.Node
	cfg    *config.HTTP
	logger *logrus.Entry

	router *mux.Router
	srv    *http.Server
}

func New(n *node.Node, cfg *config.HTTP) (*Gateway, error) {
	if err := os.MkdirAll(cfg.UploadDir, 0700); err != nil {
		return nil, errors.Wrap(err, "creating upload dir")
	}

	g := &Gateway{
		n:      n,
		cfg:    cfg,
		logger: n.Logger().WithField("component", "gateway"),
		router: mux.NewRouter(),
	}

	g.routes()

	g.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           g.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return g, nil
}

func (g *Gateway) routes() {
	r := g.router.PathPrefix("/api").Subrouter()

	r.HandleFunc("/health", g.health).Methods(http.MethodGet)
	r.HandleFunc("/mine", g.mine).Methods(http.MethodPost)
	r.HandleFunc("/upload", g.upload).Methods(http.MethodPost)
	r.HandleFunc("/balances", g.balances).Methods(http.MethodGet)
	r.HandleFunc("/chain", g.chain).Methods(http.MethodGet)
	r.HandleFunc("/history/{address}", g.history).Methods(http.MethodGet)

	g.router.PathPrefix("/uploads/").
		Handler(http.StripPrefix("/uploads/", http.FileServer(http.Dir(g.cfg.UploadDir)))).
		Methods(http.MethodGet)
}

// Handler is the router wrapped in the recovery, CORS and logging middleware
func (g *Gateway) Handler() http.Handler {
	return g.recoverer(g.cors(g.logRequests(g.router)))
}

func (g *Gateway) ListenAndServe() error {
	g.logger.WithField("addr", g.cfg.Addr).Info("Starting HTTP gateway")

	if err := g.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

func (g *Gateway) Shutdown(ctx context.Context) error {
	return g.srv.Shutdown(ctx)
}
