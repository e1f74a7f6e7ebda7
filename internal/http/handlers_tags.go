package http

import (
	"net/http"

	"mapesa/internal/core"
	"mapesa/internal/log"
)

func (s *Server) handleCreateTags(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromRequest(r)
	if err != nil {
		UnauthorizedError(err.Error()).Write(w)
		return
	}

	body, err := readBody(w, r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	tags, err := ParseTags(body)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	inserted, err := s.tags.CreateTags(r.Context(), userID, sanitizeTags(tags))
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}

	ids := make([]int64, len(inserted))
	for i, t := range inserted {
		ids[i] = t.ID
	}
	log.NewStructuredLogger(log.FromContext(r.Context())).LogTagsCreated(r.Context(), userID, ids)

	NewJSONResponse().Status(http.StatusCreated).Body(inserted).Write(w)
}

func (s *Server) handleLinkTag(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromRequest(r)
	if err != nil {
		UnauthorizedError(err.Error()).Write(w)
		return
	}

	var link core.NewTransactionTag
	if err := DecodeJSON(w, r, &link); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	links, err := s.tags.LinkTag(r.Context(), userID, link)
	if err != nil {
		s.writeError(w, r, log.OpLink, err)
		return
	}

	sl := log.NewStructuredLogger(log.FromContext(r.Context()))
	for _, l := range links {
		sl.LogTagLinked(r.Context(), l.ID, l.TagID, l.TransactionID)
	}

	NewJSONResponse().Status(http.StatusCreated).Body(links).Write(w)
}

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromRequest(r)
	if err != nil {
		UnauthorizedError(err.Error()).Write(w)
		return
	}

	if IsTruthy(r.URL.Query().Get("grouped")) {
		grouped, err := s.tags.ListUserTagsGrouped(r.Context(), userID)
		if err != nil {
			s.writeError(w, r, log.OpList, err)
			return
		}
		NewJSONResponse().Body(grouped).Write(w)
		return
	}

	rows, err := s.tags.ListUserTags(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}

	log.FromContext(r.Context()).Debug("Listed tags",
		log.NewFields().WithUser(userID).WithRowCount(len(rows)).ToSlice()...)
	NewJSONResponse().Body(rows).Write(w)
}

func (s *Server) handleLookupTags(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromRequest(r)
	if err != nil {
		UnauthorizedError(err.Error()).Write(w)
		return
	}

	ids, err := ParseIDList(r.URL.Query().Get("ids"))
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	results, err := s.tags.GetUserTags(r.Context(), userID, ids)
	if err != nil {
		s.writeError(w, r, log.OpLookup, err)
		return
	}
	NewJSONResponse().Body(results).Write(w)
}
