package web

import (
	"fmt"
	"net/http"
	"time"

	"github.com/sloppy/tychostore/internal/export"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/chains", http.StatusFound)
}

func (s *Server) handleChainsPage(w http.ResponseWriter, r *http.Request) {
	chains, err := s.DB.ListChains()
	if err != nil {
		s.Logger.Error("list chains", "err", err)
		http.Error(w, "failed to list chains", http.StatusInternalServerError)
		return
	}
	render(w, r, chainsPage(chains))
}

func (s *Server) handleContractsPage(w http.ResponseWriter, r *http.Request) {
	chain, err := parseChain(r)
	if err != nil {
		http.Error(w, "unknown chain", http.StatusNotFound)
		return
	}
	contracts, err := s.DB.ListContracts(chain)
	if err != nil {
		s.Logger.Error("list contracts", "chain", chain, "err", err)
		http.Error(w, "failed to list contracts", http.StatusInternalServerError)
		return
	}
	render(w, r, contractsPage(chain, contracts))
}

func (s *Server) handleContractPage(w http.ResponseWriter, r *http.Request) {
	chain, err := parseChain(r)
	if err != nil {
		http.Error(w, "unknown chain", http.StatusNotFound)
		return
	}
	address, err := parseAddress(r)
	if err != nil {
		http.Error(w, "invalid address", http.StatusBadRequest)
		return
	}
	version, err := parseVersionParam(r, chain, "version")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	acc, found, err := s.DB.GetContract(chain, address, version, true)
	if err != nil {
		s.storeError(w, err)
		return
	}
	if !found {
		http.Error(w, fmt.Sprintf("contract not found at %s", version), http.StatusNotFound)
		return
	}
	render(w, r, contractPage(export.NewContractExport(acc, version)))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
