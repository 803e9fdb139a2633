package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sloppy/tychostore/internal/db"
	"github.com/sloppy/tychostore/internal/evm"
)

func (s *Server) jsonResponse(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.Logger.Warn("encode response", "err", err)
		}
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, err error, status int) {
	http.Error(w, err.Error(), status)
}

func (s *Server) badRequest(w http.ResponseWriter, err error) {
	s.errorResponse(w, err, http.StatusBadRequest)
}

func (s *Server) notFound(w http.ResponseWriter, err error) {
	s.errorResponse(w, err, http.StatusNotFound)
}

func (s *Server) serverError(w http.ResponseWriter, err error) {
	s.Logger.Error("handler failed", "err", err)
	s.errorResponse(w, fmt.Errorf("internal error"), http.StatusInternalServerError)
}

// storeError maps store sentinels onto HTTP statuses.
func (s *Server) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, db.ErrNotFound) {
		s.notFound(w, err)
		return
	}
	s.serverError(w, err)
}

func parseChain(r *http.Request) (evm.Chain, error) {
	return evm.ParseChain(chi.URLParam(r, "chain"))
}

func parseAddress(r *http.Request) (evm.Address, error) {
	return evm.ParseAddress(chi.URLParam(r, "address"))
}

func parseVersionParam(r *http.Request, chain evm.Chain, name string) (*db.Version, error) {
	v, err := db.ParseVersion(chain, r.URL.Query().Get(name))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}

func parseBoolParam(r *http.Request, name string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s", name)
	}
	return v, nil
}
