package gateway

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/multiformats/go-multihash"
	"github.com/pkg/errors"
	"github.com/tcfw/cognitechain/pkg/chain"
	"github.com/tcfw/cognitechain/pkg/storage"
	"github.com/tcfw/cognitechain/pkg/tx"
)

type errorResponse struct {
	Error string `json:"error"`
}

type mineRequest struct {
	Address     string `json:"address"`
	BlocksMined *int64 `json:"blocksMined"`
	Score       int64  `json:"score"`
}

type mineResponse struct {
	Success    bool   `json:"success"`
	BlockIndex uint64 `json:"blockIndex"`
	Amount     int64  `json:"amount"`
}

type uploadResponse struct {
	Success    bool   `json:"success"`
	BlockIndex uint64 `json:"blockIndex"`
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func (g *Gateway) writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError

	switch {
	case errors.Is(err, tx.ErrInvalidTransaction):
		code = http.StatusBadRequest
	case errors.Is(err, chain.ErrMiningTimeout):
		code = http.StatusServiceUnavailable
	}

	if code == http.StatusInternalServerError {
		g.logger.WithError(err).Error("handling request")
	}

	writeJSON(w, code, errorResponse{Error: err.Error()})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

func (g *Gateway) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (g *Gateway) mine(w http.ResponseWriter, r *http.Request) {
	req := &mineRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	if req.Address == "" || req.BlocksMined == nil || *req.BlocksMined <= 0 {
		badRequest(w, "address and a positive blocksMined are required")
		return
	}

	t, err := g.n.Rewards().NewMining(req.Address, *req.BlocksMined, req.Score)
	if err != nil {
		g.writeError(w, err)
		return
	}

	idx, err := g.n.Ledger().RecordTransaction(r.Context(), *t)
	if err != nil {
		g.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, mineResponse{Success: true, BlockIndex: idx, Amount: t.Amount})
}

func (g *Gateway) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, g.cfg.MaxUploadSize)
	if err := r.ParseMultipartForm(g.cfg.MaxUploadSize); err != nil {
		badRequest(w, "invalid multipart form")
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, "no file part")
		return
	}
	defer f.Close()

	hash := strings.ToLower(r.FormValue("hash"))
	address := r.FormValue("address")
	if hash == "" || address == "" {
		badRequest(w, "hash and address are required")
		return
	}

	data, err := ioutil.ReadAll(f)
	if err != nil {
		badRequest(w, "reading file")
		return
	}

	sum, err := contentHash(data)
	if err != nil {
		g.writeError(w, err)
		return
	}

	if sum != hash {
		badRequest(w, "file hash does not match")
		return
	}

	name := uploadName(header.Filename)
	path := filepath.Join(g.cfg.UploadDir, name)

	if err := ioutil.WriteFile(path, data, 0600); err != nil {
		g.writeError(w, errors.Wrap(err, "storing upload"))
		return
	}

	t := g.n.Rewards().NewFileUpload(address, name, hash)

	idx, err := g.n.Ledger().RecordTransaction(r.Context(), *t)
	if err != nil {
		// a committed block already references the stored file
		if !storage.IsCommitted(err) {
			os.Remove(path)
		}
		g.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{Success: true, BlockIndex: idx})
}

// contentHash is the hex sha2-256 digest of data
func contentHash(data []byte) (string, error) {
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return "", errors.Wrap(err, "hashing upload")
	}

	dmh, err := multihash.Decode(mh)
	if err != nil {
		return "", errors.Wrap(err, "decoding upload hash")
	}

	return hex.EncodeToString(dmh.Digest), nil
}

// uploadName strips any directory parts from a client supplied filename
func uploadName(name string) string {
	name = filepath.Base(filepath.Clean("/" + strings.ReplaceAll(name, "\\", "/")))
	if name == "/" || name == "." || name == "" {
		return fmt.Sprintf("upload-%d", time.Now().Unix())
	}

	return name
}

func (g *Gateway) balances(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, g.n.Ledger().Balances())
}

func (g *Gateway) chain(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, g.n.Ledger().Snapshot())
}

func (g *Gateway) history(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	h, err := g.n.Ledger().History(r.Context(), address)
	if err != nil {
		g.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h)
}
