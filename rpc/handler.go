package rpc

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tolelom/dropchain/core"
	"github.com/tolelom/dropchain/drop"
	"github.com/tolelom/dropchain/indexer"
	"github.com/tolelom/dropchain/vm"
)

// Handler holds all dependencies needed to serve RPC methods.
type Handler struct {
	bc      *core.Blockchain
	mempool *core.Mempool
	state   core.State
	indexer *indexer.Indexer
	chainID string // expected chain_id; used to reject cross-chain replay transactions
}

// NewHandler creates an RPC Handler.
func NewHandler(bc *core.Blockchain, mempool *core.Mempool, state core.State, idx *indexer.Indexer, chainID string) *Handler {
	return &Handler{bc: bc, mempool: mempool, state: state, indexer: idx, chainID: chainID}
}

// Dispatch routes an RPC request to the correct method.
func (h *Handler) Dispatch(req Request) Response {
	switch req.Method {
	case "getBlockHeight":
		return okResponse(req.ID, h.bc.Height())
	case "getBlock":
		return h.getBlock(req)
	case "getBalance":
		return h.getBalance(req)
	case "sendTx":
		return h.sendTx(req)
	case "getMempoolSize":
		return okResponse(req.ID, h.mempool.Size())

	case "getDropCount":
		return h.getDropCount(req)
	case "getDropAtIndex":
		return h.getDropAtIndex(req)
	case "getDrop":
		return h.withDrop(req, func(e *drop.Engine, _ dropParams) any { return e.Drop() })
	case "getTotalMinted":
		return h.withDrop(req, func(e *drop.Engine, _ dropParams) any { return e.TotalMinted() })
	case "getMintLimit":
		return h.withDrop(req, func(e *drop.Engine, p dropParams) any { return e.MintLimit(p.Address) })
	case "getAllowListMintLimit":
		return h.withDrop(req, func(e *drop.Engine, _ dropParams) any { return e.AllowListMintLimit() })
	case "getGeneralMintLimit":
		return h.withDrop(req, func(e *drop.Engine, _ dropParams) any { return e.GeneralMintLimit() })
	case "isRandomMint":
		return h.withDrop(req, func(e *drop.Engine, _ dropParams) any { return e.IsRandomMint() })
	case "isAllowListed":
		return h.withDrop(req, func(e *drop.Engine, p dropParams) any {
			listID := p.ListID
			if listID == 0 {
				listID = drop.DefaultAllowList
			}
			return e.Drop().AllowLists.IsMember(listID, p.Address)
		})
	case "getTokenURI":
		return h.withDrop(req, func(e *drop.Engine, p dropParams) any { return e.Drop().TokenURI(p.TokenID) })
	case "simulateMint":
		return h.simulateMint(req)
	case "getToken":
		return h.getToken(req)
	case "getTokensByOwner":
		return h.getTokensByOwner(req)
	case "getDropsByArtist":
		return h.getDropsByArtist(req)

	default:
		return errResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("method %q not found", req.Method))
	}
}

// stateError maps a lookup failure to an RPC error.
func stateError(id any, err error) Response {
	if errors.Is(err, core.ErrNotFound) {
		return errResponse(id, CodeNotFound, err.Error())
	}
	return errResponse(id, CodeInternalError, err.Error())
}

var dropCodes = []struct {
	err  error
	code int
}{
	{drop.ErrAuthorization, CodeDropAuthorization},
	{drop.ErrAccessGate, CodeDropAccessGate},
	{drop.ErrSupplyExhausted, CodeDropSupplyExhausted},
	{drop.ErrQuantityLimit, CodeDropQuantityLimit},
	{drop.ErrInsufficientPayment, CodeDropInsufficientPayment},
	{drop.ErrInvalidArgument, CodeDropInvalidArgument},
}

// dropError maps a drop rule violation to its own code.
func dropError(id any, err error) Response {
	for _, dc := range dropCodes {
		if errors.Is(err, dc.err) {
			return errResponse(id, dc.code, err.Error())
		}
	}
	return errResponse(id, CodeInternalError, err.Error())
}

func (h *Handler) getBlock(req Request) Response {
	var params struct {
		Hash   string `json:"hash"`
		Height *int64 `json:"height"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
	}

	var block *core.Block
	var err error
	switch {
	case params.Hash != "":
		block, err = h.bc.GetBlock(params.Hash)
	case params.Height != nil:
		block, err = h.bc.GetBlockByHeight(*params.Height)
	default:
		block = h.bc.Tip()
	}
	if err != nil {
		return stateError(req.ID, err)
	}
	if block == nil {
		return errResponse(req.ID, CodeNotFound, "no block found")
	}
	return okResponse(req.ID, block)
}

func (h *Handler) getBalance(req Request) Response {
	var params struct {
		Address string `json:"address"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if params.Address == "" {
		return errResponse(req.ID, CodeInvalidParams, "address is required")
	}
	acc, err := h.state.GetAccount(params.Address)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, map[string]any{"address": params.Address, "balance": acc.Balance, "nonce": acc.Nonce})
}

func (h *Handler) sendTx(req Request) Response {
	var tx core.Transaction
	if err := json.Unmarshal(req.Params, &tx); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	// Reject transactions destined for a different network to prevent
	// cross-chain replay attacks.
	if tx.ChainID != h.chainID {
		return errResponse(req.ID, CodeInvalidParams,
			fmt.Sprintf("chain ID mismatch: got %q want %q", tx.ChainID, h.chainID))
	}
	if !vm.Supported(tx.Type) {
		return errResponse(req.ID, CodeInvalidParams, fmt.Sprintf("unsupported tx type %q", tx.Type))
	}
	// Recompute the ID server-side; do not trust the client-provided value.
	tx.ID = tx.Hash()
	if err := h.mempool.Add(&tx); err != nil {
		if errors.Is(err, core.ErrUnpayableType) {
			return errResponse(req.ID, CodeInvalidParams, err.Error())
		}
		return errResponse(req.ID, CodeRejected, err.Error())
	}
	return okResponse(req.ID, map[string]string{"tx_id": tx.ID})
}

// ---- drops ----

const maxSimulatedQuantity = 1000

type dropParams struct {
	DropID  string `json:"drop_id"`
	Address string `json:"address"`
	ListID  uint64 `json:"list_id"`
	TokenID uint64 `json:"token_id"`
}

// withDrop decodes dropParams, loads the drop read-only and answers with fn.
func (h *Handler) withDrop(req Request, fn func(*drop.Engine, dropParams) any) Response {
	var params dropParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if params.DropID == "" {
		return errResponse(req.ID, CodeInvalidParams, "drop_id is required")
	}
	eng, err := drop.NewFactory(h.state).Open(params.DropID, nil)
	if err != nil {
		return stateError(req.ID, err)
	}
	return okResponse(req.ID, fn(eng, params))
}

func (h *Handler) getDropCount(req Request) Response {
	n, err := h.state.DropCount()
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, n)
}

func (h *Handler) getDropAtIndex(req Request) Response {
	var params struct {
		Index uint64 `json:"index"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	id, err := drop.NewFactory(h.state).GetDropAtIndex(params.Index)
	if err != nil {
		return stateError(req.ID, err)
	}
	return okResponse(req.ID, id)
}

// simulateMint runs the mint rules against current state without writing
// anything. Identifiers of a random mint are indicative only.
func (h *Handler) simulateMint(req Request) Response {
	var params struct {
		DropID   string `json:"drop_id"`
		Caller   string `json:"caller"`
		Quantity uint64 `json:"quantity"`
		Payment  uint64 `json:"payment"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if params.DropID == "" || params.Caller == "" {
		return errResponse(req.ID, CodeInvalidParams, "drop_id and caller are required")
	}
	if params.Quantity > maxSimulatedQuantity {
		return errResponse(req.ID, CodeInvalidParams, fmt.Sprintf("quantity above %d", maxSimulatedQuantity))
	}
	d, err := h.state.GetDrop(params.DropID)
	if err != nil {
		return stateError(req.ID, err)
	}
	recipients := make([]string, params.Quantity)
	for i := range recipients {
		recipients[i] = params.Caller
	}
	eng := drop.NewEngine(d, drop.NewChainEntropy([]byte(d.ID), []byte(params.Caller)))
	receipt, err := eng.Mint(drop.MintRequest{
		Caller:     params.Caller,
		Recipients: recipients,
		Payment:    params.Payment,
	})
	if err != nil {
		return dropError(req.ID, err)
	}
	return okResponse(req.ID, receipt)
}

func (h *Handler) getToken(req Request) Response {
	var params dropParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if params.DropID == "" || params.TokenID == 0 {
		return errResponse(req.ID, CodeInvalidParams, "drop_id and token_id are required")
	}
	tok, err := h.state.GetToken(params.DropID, params.TokenID)
	if err != nil {
		return stateError(req.ID, err)
	}
	return okResponse(req.ID, tok)
}

func (h *Handler) getTokensByOwner(req Request) Response {
	var params struct {
		Owner string `json:"owner"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if params.Owner == "" {
		return errResponse(req.ID, CodeInvalidParams, "owner is required")
	}
	refs, err := h.indexer.GetTokensByOwner(params.Owner)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, refs)
}

func (h *Handler) getDropsByArtist(req Request) Response {
	var params struct {
		Artist string `json:"artist"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if params.Artist == "" {
		return errResponse(req.ID, CodeInvalidParams, "artist is required")
	}
	ids, err := h.indexer.GetDropsByArtist(params.Artist)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, ids)
}
