package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"mediavault/internal/catalog"
	"mediavault/internal/media"
	"mediavault/internal/services"
)

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := catalog.Filter{Query: strings.TrimSpace(query.Get("q"))}
	if value := strings.TrimSpace(query.Get("kind")); value != "" {
		kind, err := media.ParseFileKind(value)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		filter.Kind = kind
	}
	if value := strings.TrimSpace(query.Get("downloaded")); value != "" {
		downloaded, err := strconv.ParseBool(value)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid downloaded flag")
			return
		}
		filter.DownloadedOnly = downloaded
	}

	records, err := s.manager.List(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ItemListResponse{Items: FromRecords(records)})
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := s.itemID(w, r)
	if !ok {
		return
	}
	rec, err := s.manager.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ItemResponse{Item: FromRecord(rec)})
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := s.itemID(w, r)
	if !ok {
		return
	}
	if err := s.manager.DeleteItem(r.Context(), id); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id, ok := s.itemID(w, r)
	if !ok {
		return
	}
	ch, err := s.manager.StartDownload(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.streamStatuses(w, r, ch)
}

func (s *Server) handlePrepare(w http.ResponseWriter, r *http.Request) {
	id, ok := s.itemID(w, r)
	if !ok {
		return
	}
	ch, err := s.manager.StartPrepare(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.streamStatuses(w, r, ch)
}

func (s *Server) handleProbeSize(w http.ResponseWriter, r *http.Request) {
	id, ok := s.itemID(w, r)
	if !ok {
		return
	}
	size, err := s.manager.ProbeSize(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, SizeResponse{ID: id, SizeBytes: size, FileSize: media.DisplaySize(size)})
}

func (s *Server) handleServeTemp(w http.ResponseWriter, r *http.Request) {
	kind, ok := s.tempKind(w, r)
	if !ok {
		return
	}
	file, release, err := s.manager.OpenTemp(r.Context(), kind)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "no prepared "+string(kind)+" file")
			return
		}
		s.writeServiceError(w, err)
		return
	}
	defer release()
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", kind.ContentType())
	http.ServeContent(w, r, "temp."+kind.Ext(), info.ModTime(), file)
}

func (s *Server) handleReleaseTemp(w http.ResponseWriter, r *http.Request) {
	kind, ok := s.tempKind(w, r)
	if !ok {
		return
	}
	if err := s.manager.ReleaseTemp(r.Context(), kind); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) itemID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, "invalid item id")
		return 0, false
	}
	return id, true
}

func (s *Server) tempKind(w http.ResponseWriter, r *http.Request) (media.FileKind, bool) {
	kind, err := media.ParseFileKind(chi.URLParam(r, "kind"))
	if err != nil {
		s.writeServiceError(w, err)
		return "", false
	}
	return kind, true
}
