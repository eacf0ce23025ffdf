package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/plantcare/internal/api"
	"github.com/dmitrijs2005/plantcare/internal/common"
)

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.HealthResponse{Status: "ok"})
}

// decode reads a size-capped JSON body into v.
func decode(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	return api.Decode(r.Body, v)
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, api.FieldError(name, "must be an integer")
	}
	if n < 0 {
		return 0, api.FieldError(name, "must not be negative")
	}
	return n, nil
}

func queryPage(r *http.Request) (api.Page, error) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		return api.Page{}, err
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		return api.Page{}, err
	}
	return api.Page{Limit: limit, Offset: offset}, nil
}

func (s *Server) identify(w http.ResponseWriter, r *http.Request) {
	var req api.IdentifyRequest
	if err := decode(w, r, maxIdentifyBodyBytes, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := s.svc.Identify.Identify(r.Context(), req)
	if err != nil {
		// The request was validated above, so a parse error here is an
		// unusable provider response.
		var pe *api.ParseError
		if errors.As(err, &pe) {
			s.log.Warn(r.Context(), "unusable provider response", "error", err)
			writeError(w, http.StatusBadGateway, "identification provider failed", pe.Error())
			return
		}
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) getGuide(w http.ResponseWriter, r *http.Request) {
	g, err := s.svc.Guides.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) listGuides(w http.ResponseWriter, r *http.Request) {
	page, err := queryPage(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	filter := api.GuideFilter{DiseaseName: r.URL.Query().Get("disease_name")}

	out, err := s.svc.Guides.ListByPlant(r.Context(), chi.URLParam(r, "plantId"), filter, page)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createGuide(w http.ResponseWriter, r *http.Request) {
	var g api.Guide
	if err := decode(w, r, maxBodyBytes, &g); err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.svc.Guides.Create(r.Context(), g)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) updateGuide(w http.ResponseWriter, r *http.Request) {
	var g api.Guide
	if err := decode(w, r, maxBodyBytes, &g); err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.svc.Guides.Update(r.Context(), chi.URLParam(r, "id"), g)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) deleteGuide(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Guides.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// userID is set by BearerAuth; its absence means the route was mounted
// without it.
func (s *Server) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := UserIDFromContext(r.Context())
	if !ok {
		s.fail(w, r, common.ErrorUnauthorized)
	}
	return id, ok
}

func (s *Server) listCollections(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	page, err := queryPage(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	out, err := s.svc.Collections.List(r.Context(), userID, r.URL.Query().Get("health_status"), page)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createCollection(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var rec api.CollectionRecord
	if err := decode(w, r, maxBodyBytes, &rec); err != nil {
		s.fail(w, r, err)
		return
	}

	out, err := s.svc.Collections.Create(r.Context(), userID, rec)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) getCollection(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	out, err := s.svc.Collections.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) updateCollection(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var p api.CollectionPatch
	if err := decode(w, r, maxBodyBytes, &p); err != nil {
		s.fail(w, r, err)
		return
	}

	out, err := s.svc.Collections.Update(r.Context(), userID, chi.URLParam(r, "id"), p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) deleteCollection(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	if err := s.svc.Collections.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) syncCollections(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var req api.SyncRequest
	if err := decode(w, r, maxBodyBytes, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if len(req.Collections) > maxSyncItems {
		s.fail(w, r, api.FieldError("collections", "at most %d items per request", maxSyncItems))
		return
	}

	writeJSON(w, http.StatusOK, s.svc.Collections.Sync(r.Context(), userID, req.Collections))
}

func (s *Server) collectionChanges(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	since, err := parseSince(r.URL.Query().Get("since"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	changes, err := s.svc.Collections.ChangesSince(r.Context(), userID, since)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if changes == nil {
		changes = []api.CollectionRecord{}
	}
	writeJSON(w, http.StatusOK, changes)
}

// sinceLayouts are tried in order. Timestamps without a zone are UTC.
var sinceLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// parseSince reads the changes watermark. An empty value means the epoch.
func parseSince(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range sinceLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, api.FieldError("since", "must be an ISO 8601 timestamp")
}

func (s *Server) recordCare(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var req api.CareRequest
	if err := decode(w, r, maxBodyBytes, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	out, err := s.svc.Collections.RecordCare(r.Context(), userID, chi.URLParam(r, "id"), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) careHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	out, err := s.svc.Collections.CareHistory(r.Context(), userID, chi.URLParam(r, "id"), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) presignImage(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	out, err := s.svc.Images.PresignUpload(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
