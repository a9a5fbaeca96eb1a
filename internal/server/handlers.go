package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/hyperjump/mulefind/internal/config"
	"github.com/hyperjump/mulefind/internal/models"
	"github.com/hyperjump/mulefind/internal/query"
	"github.com/hyperjump/mulefind/internal/storage"
	"go.uber.org/zap"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request", zap.String("query", req.Query), zap.String("ext", req.Ext), zap.Int("limit", req.Limit))
	response, err := s.engine.Search(r.Context(), &req)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

type matchRequest struct {
	Query      string   `json:"query"`
	Candidates []string `json:"candidates"`
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	matches := query.Filter(query.Compile(req.Query), req.Candidates)
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"matches": matches})
}

type parseRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	q := query.Compile(req.Query)
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"query":     q.Raw(),
		"tree":      q.Root(),
		"canonical": q.String(),
	})
}

func (s *Server) handleKnown(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params := r.URL.Query()
	offset, _ := strconv.Atoi(params.Get("offset"))
	if offset < 0 {
		offset = 0
	}
	limit, _ := strconv.Atoi(params.Get("limit"))
	if limit <= 0 {
		limit = s.config.Search.DefaultLimit
	}
	if limit > s.config.Search.MaxLimit {
		limit = s.config.Search.MaxLimit
	}

	hits, total, err := storage.Browse(ctx, s.store, params.Get("q"), offset, limit)
	if err != nil {
		s.logger.Error("known: query failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if hits == nil {
		hits = []*models.Hit{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"hits": hits, "total": total})
}

type providerStatus struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	known, err := s.store.Count(ctx)
	if err != nil {
		s.logger.Error("status: count known files failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	providers := make([]providerStatus, 0)
	for _, p := range s.engine.Providers() {
		// A stats failure reports the provider as down.
		available, _ := p.Available(ctx)
		providers = append(providers, providerStatus{Name: p.Name(), Available: available})
	}
	resp := map[string]interface{}{
		"known_files": known,
		"providers":   providers,
	}

	configInfo := map[string]interface{}{
		"database_path":  s.config.Storage.DatabasePath,
		"daemon_url":     s.config.Daemon.URL,
		"sanitize_names": s.config.Search.SanitizeNamesOrDefault(),
		"track_known":    s.config.Search.TrackKnownOrDefault(),
	}
	if s.library != nil {
		configInfo["library_directories"] = s.library.Directories()
	}
	if diskBytes, err := storage.DiskUsageBytes(s.config.Storage.DatabasePath); err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	resp["config"] = configInfo
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLibraryDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.library == nil {
		s.respondError(w, http.StatusNotImplemented, "library not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": s.library.Directories()})
}

type libraryAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleLibraryDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.library == nil {
		s.respondError(w, http.StatusNotImplemented, "library not enabled")
		return
	}
	var req libraryAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := req.Sync == nil || *req.Sync
	s.logger.Debug("library add directory request", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if err := s.library.AddDirectory(abs, syncExisting); err != nil {
		s.logger.Error("library add directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistDirectories()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleLibraryDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.library == nil {
		s.respondError(w, http.StatusNotImplemented, "library not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	s.logger.Debug("library remove directory request", zap.String("path", abs))
	if err := s.library.RemoveDirectory(abs); err != nil {
		s.logger.Error("library remove directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistDirectories()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

// persistDirectories writes the current shared directories back to the config file.
func (s *Server) persistDirectories() {
	if s.configPath == "" {
		return
	}
	s.configMu.Lock()
	defer s.configMu.Unlock()
	s.config.Watch.Directories = s.library.Directories()
	if err := config.Save(s.configPath, s.config); err != nil {
		s.logger.Warn("failed to persist library directories", zap.Error(err))
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
