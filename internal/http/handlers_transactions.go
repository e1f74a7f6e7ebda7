package http

import (
	"net/http"

	"mapesa/internal/log"
	"mapesa/internal/services"
)

func (s *Server) handleRecordTransaction(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromRequest(r)
	if err != nil {
		UnauthorizedError(err.Error()).Write(w)
		return
	}

	var req services.RecordTransaction
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	req.Subject = sanitizeInput(req.Subject)

	tx, err := s.txs.Record(r.Context(), userID, req)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}

	NewJSONResponse().Status(http.StatusCreated).Body(tx).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromRequest(r)
	if err != nil {
		UnauthorizedError(err.Error()).Write(w)
		return
	}

	tx, err := s.txs.Get(r.Context(), userID, r.PathValue("code"))
	if err != nil {
		s.writeError(w, r, log.OpLookup, err)
		return
	}

	NewJSONResponse().Body(tx).Write(w)
}
