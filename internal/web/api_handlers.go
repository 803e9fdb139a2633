package web

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/sloppy/tychostore/internal/db"
	"github.com/sloppy/tychostore/internal/evm"
	"github.com/sloppy/tychostore/internal/export"
)

type contractSummary struct {
	Address   evm.Address `json:"address"`
	Title     string      `json:"title"`
	CreatedAt time.Time   `json:"created_at"`
	DeletedAt *time.Time  `json:"deleted_at,omitempty"`
}

type tokenResponse struct {
	Address  evm.Address `json:"address"`
	Symbol   string      `json:"symbol"`
	Decimals uint32      `json:"decimals"`
	Tax      uint64      `json:"tax"`
	Gas      []*uint64   `json:"gas"`
}

type componentResponse struct {
	ID               string               `json:"id"`
	ProtocolSystem   evm.ProtocolSystem   `json:"protocol_system"`
	ProtocolTypeID   string               `json:"protocol_type_id"`
	Tokens           []evm.Address        `json:"tokens"`
	Contracts        []evm.Address        `json:"contracts"`
	StaticAttributes map[string]evm.Bytes `json:"static_attributes"`
}

type stateResponse struct {
	ComponentID string               `json:"component_id"`
	Version     string               `json:"version"`
	Attributes  map[string]evm.Bytes `json:"attributes"`
	ModifyTx    evm.Hash             `json:"modify_tx"`
}

type runResponse struct {
	ID           uuid.UUID `json:"id"`
	Chain        evm.Chain `json:"chain"`
	Source       string    `json:"source"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	Blocks       int       `json:"blocks"`
	Transactions int       `json:"transactions"`
	Accounts     int       `json:"accounts"`
	Slots        int       `json:"slots"`
	Skipped      int       `json:"skipped"`
}

func (s *Server) apiListChains(w http.ResponseWriter, r *http.Request) {
	chains, err := s.DB.ListChains()
	if err != nil {
		s.serverError(w, err)
		return
	}
	if chains == nil {
		chains = []evm.Chain{}
	}
	s.jsonResponse(w, chains, http.StatusOK)
}

func (s *Server) apiListContracts(w http.ResponseWriter, r *http.Request) {
	chain, err := parseChain(r)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	rows, err := s.DB.ListContracts(chain)
	if err != nil {
		s.storeError(w, err)
		return
	}
	out := make([]contractSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, contractSummary{
			Address:   row.Address,
			Title:     row.Title,
			CreatedAt: row.CreatedAt,
			DeletedAt: row.DeletedAt,
		})
	}
	s.jsonResponse(w, out, http.StatusOK)
}

func (s *Server) apiGetContract(w http.ResponseWriter, r *http.Request) {
	chain, err := parseChain(r)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	address, err := parseAddress(r)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	version, err := parseVersionParam(r, chain, "version")
	if err != nil {
		s.badRequest(w, err)
		return
	}
	includeSlots, err := parseBoolParam(r, "slots", true)
	if err != nil {
		s.badRequest(w, err)
		return
	}

	acc, found, err := s.DB.GetContract(chain, address, version, includeSlots)
	if err != nil {
		s.storeError(w, err)
		return
	}
	if !found {
		s.notFound(w, fmt.Errorf("contract %s not found at %s", address.Hex(), version))
		return
	}
	s.jsonResponse(w, export.NewContractExport(acc, version), http.StatusOK)
}

func (s *Server) apiGetDelta(w http.ResponseWriter, r *http.Request) {
	chain, err := parseChain(r)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	if strings.TrimSpace(r.URL.Query().Get("start")) == "" {
		s.badRequest(w, fmt.Errorf("start is required"))
		return
	}
	start, err := parseVersionParam(r, chain, "start")
	if err != nil {
		s.badRequest(w, err)
		return
	}
	target, err := parseVersionParam(r, chain, "target")
	if err != nil {
		s.badRequest(w, err)
		return
	}

	delta, err := s.DB.GetSlotsDelta(chain, start, target)
	if err != nil {
		s.storeError(w, err)
		return
	}
	payload := export.NewDeltaExport(chain, start, target, delta)

	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format"))) {
	case "", "json":
		s.jsonResponse(w, payload, http.StatusOK)
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "delta-"+chain.String()+".csv"))
		if err := export.WriteDeltaCSV(w, payload); err != nil {
			s.Logger.Warn("write delta csv", "err", err)
		}
	default:
		s.badRequest(w, fmt.Errorf("invalid format"))
	}
}

func (s *Server) apiListTokens(w http.ResponseWriter, r *http.Request) {
	chain, err := parseChain(r)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	tokens, err := s.DB.ListTokens(chain)
	if err != nil {
		s.storeError(w, err)
		return
	}
	out := make([]tokenResponse, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, tokenResponse{
			Address:  t.Address,
			Symbol:   t.Symbol,
			Decimals: t.Decimals,
			Tax:      t.Tax,
			Gas:      t.Gas,
		})
	}
	s.jsonResponse(w, out, http.StatusOK)
}

func (s *Server) apiListComponents(w http.ResponseWriter, r *http.Request) {
	chain, err := parseChain(r)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	components, err := s.DB.ListProtocolComponents(chain)
	if err != nil {
		s.storeError(w, err)
		return
	}
	out := make([]componentResponse, 0, len(components))
	for _, c := range components {
		out = append(out, componentResponse{
			ID:               c.ID,
			ProtocolSystem:   c.ProtocolSystem,
			ProtocolTypeID:   c.ProtocolTypeID,
			Tokens:           c.Tokens,
			Contracts:        c.ContractIDs,
			StaticAttributes: c.StaticAttributes,
		})
	}
	s.jsonResponse(w, out, http.StatusOK)
}

func (s *Server) apiGetComponentState(w http.ResponseWriter, r *http.Request) {
	chain, err := parseChain(r)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	version, err := parseVersionParam(r, chain, "version")
	if err != nil {
		s.badRequest(w, err)
		return
	}
	id := chi.URLParam(r, "id")

	state, found, err := s.DB.GetProtocolState(chain, id, version)
	if err != nil {
		s.storeError(w, err)
		return
	}
	if !found {
		s.notFound(w, fmt.Errorf("no state for component %s at %s", id, version))
		return
	}
	s.jsonResponse(w, stateResponse{
		ComponentID: state.ComponentID,
		Version:     version.String(),
		Attributes:  state.Attributes,
		ModifyTx:    state.ModifyTx,
	}, http.StatusOK)
}

func (s *Server) apiListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.DB.ListExtractionRuns()
	if err != nil {
		s.serverError(w, err)
		return
	}
	out := make([]runResponse, 0, len(runs))
	for _, run := range runs {
		out = append(out, toRunResponse(run))
	}
	s.jsonResponse(w, out, http.StatusOK)
}

func toRunResponse(run db.ExtractionRun) runResponse {
	return runResponse{
		ID:           run.ID,
		Chain:        run.Chain,
		Source:       run.Source,
		StartedAt:    run.StartedAt,
		FinishedAt:   run.FinishedAt,
		Blocks:       run.Blocks,
		Transactions: run.Transactions,
		Accounts:     run.Accounts,
		Slots:        run.Slots,
		Skipped:      run.Skipped,
	}
}

type blockResponse struct {
	Number     uint64    `json:"number"`
	Hash       evm.Hash  `json:"hash"`
	ParentHash evm.Hash  `json:"parent_hash"`
	Chain      evm.Chain `json:"chain"`
	Timestamp  time.Time `json:"timestamp"`
}

type slotChangeResponse struct {
	Value         string     `json:"value"`
	PreviousValue *string    `json:"previous_value"`
	ModifyTx      evm.Hash   `json:"modify_tx"`
	Ordinal       int64      `json:"ordinal"`
	ValidFrom     time.Time  `json:"valid_from"`
	ValidTo       *time.Time `json:"valid_to,omitempty"`
}

// apiGetBlock resolves {ref} as "latest", a block hash or a block number.
func (s *Server) apiGetBlock(w http.ResponseWriter, r *http.Request) {
	chain, err := parseChain(r)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	ref := strings.TrimSpace(chi.URLParam(r, "ref"))

	var (
		block db.StoredBlock
		found bool
	)
	switch {
	case ref == "latest":
		block, found, err = s.DB.LatestBlock(chain)
	case strings.HasPrefix(ref, "0x"):
		hash, perr := evm.ParseHash(ref)
		if perr != nil {
			s.badRequest(w, perr)
			return
		}
		block, found, err = s.DB.GetBlockByHash(hash)
		found = found && block.Chain == chain
	default:
		number, perr := strconv.ParseUint(ref, 10, 64)
		if perr != nil {
			s.badRequest(w, fmt.Errorf("invalid block %q", ref))
			return
		}
		block, found, err = s.DB.GetBlockByNumber(chain, number)
	}
	if err != nil {
		s.serverError(w, err)
		return
	}
	if !found {
		s.notFound(w, fmt.Errorf("block %s on %s not found", ref, chain))
		return
	}
	s.jsonResponse(w, blockResponse{
		Number:     block.Number,
		Hash:       block.Hash,
		ParentHash: block.ParentHash,
		Chain:      block.Chain,
		Timestamp:  block.Timestamp,
	}, http.StatusOK)
}

func (s *Server) apiSlotHistory(w http.ResponseWriter, r *http.Request) {
	chain, err := parseChain(r)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	address, err := parseAddress(r)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	slot, err := evm.ParseU256(chi.URLParam(r, "slot"))
	if err != nil {
		s.badRequest(w, err)
		return
	}

	changes, err := s.DB.SlotHistory(chain, address, slot)
	if err != nil {
		s.storeError(w, err)
		return
	}
	out := make([]slotChangeResponse, 0, len(changes))
	for _, c := range changes {
		resp := slotChangeResponse{
			Value:     wordHex(c.Value),
			ModifyTx:  c.ModifyTx,
			Ordinal:   c.Ordinal,
			ValidFrom: c.ValidFrom,
			ValidTo:   c.ValidTo,
		}
		if c.PreviousValue != nil {
			prev := wordHex(c.PreviousValue)
			resp.PreviousValue = &prev
		}
		out = append(out, resp)
	}
	s.jsonResponse(w, out, http.StatusOK)
}

// wordHex renders a stored 32-byte word as a minimal 0x number.
func wordHex(word evm.Bytes) string {
	var v uint256.Int
	v.SetBytes(word)
	return v.Hex()
}
