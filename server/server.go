// Package server is a development stand-in for a preset device. It serves
// the device's JSON HTTP API from a Repository so the editor can be run and
// tested without hardware.
package server

import (
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/asaidimu/go-presets/core/preset"
	"github.com/asaidimu/go-presets/core/schema"
	"github.com/asaidimu/go-presets/utils"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

const maxBody = 4 << 20

// Options configures a Handler.
type Options struct {
	Scenes    schema.Catalog
	Providers schema.Catalog
	Logger    *zap.Logger
}

// Handler serves the device API.
type Handler struct {
	repo      Repository
	scenes    schema.Catalog
	providers schema.Catalog
	logger    *zap.Logger
	mux       *http.ServeMux

	mu      sync.RWMutex
	active  string
	running *preset.RawPreset
}

// NewHandler creates a Handler backed by repo. Empty catalogs fall back to
// DefaultScenes and DefaultProviders.
func NewHandler(repo Repository, opts Options) *Handler {
	if opts.Scenes == nil {
		opts.Scenes = DefaultScenes()
	}
	if opts.Providers == nil {
		opts.Providers = DefaultProviders()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	h := &Handler{
		repo:      repo,
		scenes:    opts.Scenes,
		providers: opts.Providers,
		logger:    opts.Logger,
		mux:       http.NewServeMux(),
	}
	h.routes()
	return h
}

// ServeHTTP makes Handler an http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) routes() {
	h.mux.HandleFunc("GET /list_presets", h.listPresets)
	h.mux.HandleFunc("GET /presets", h.getPreset)
	h.mux.HandleFunc("POST /preset", h.savePreset)
	h.mux.HandleFunc("DELETE /preset", h.deletePreset)
	h.mux.HandleFunc("POST /add_preset", h.addPreset)
	h.mux.HandleFunc("GET /set_preset", h.activatePreset)
	h.mux.HandleFunc("POST /set_preset", h.pushPreset)
	h.mux.HandleFunc("GET /list_scenes", h.listCatalog(h.scenes))
	h.mux.HandleFunc("GET /list_providers", h.listCatalog(h.providers))
}

// Active returns the active preset id and, when one was pushed, the preset
// the device is running. Without a push the stored preset is running.
func (h *Handler) Active() (string, *preset.RawPreset) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.running == nil {
		return h.active, nil
	}
	running, err := utils.Clone(*h.running)
	if err != nil {
		return h.active, nil
	}
	return h.active, &running
}

// ---------- helpers ----------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrExists):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeError(w, status, err.Error())
}

// requireID reads the id query parameter, answering 400 when it is missing.
func requireID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Id not given")
		return "", false
	}
	return id, true
}

// readPreset decodes and checks a preset body. An empty body is an empty
// preset when allowEmpty is set.
func readPreset(w http.ResponseWriter, r *http.Request, allowEmpty bool) (preset.RawPreset, bool) {
	defer r.Body.Close()
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Could not read body")
		return preset.RawPreset{}, false
	}
	if len(data) == 0 && allowEmpty {
		return preset.RawPreset{Scenes: []preset.Scene{}}, true
	}

	var raw preset.RawPreset
	if err := json.Unmarshal(data, &raw); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid json payload")
		return preset.RawPreset{}, false
	}
	if _, err := preset.ToEditable(raw); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return preset.RawPreset{}, false
	}
	if raw.Scenes == nil {
		raw.Scenes = []preset.Scene{}
	}
	return raw, true
}

// ---------- presets ----------

func (h *Handler) listPresets(w http.ResponseWriter, r *http.Request) {
	presets, err := h.repo.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, presets)
}

func (h *Handler) getPreset(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		ids, err := h.repo.IDs(r.Context())
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ids)
		return
	}

	raw, err := h.repo.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, raw)
}

func (h *Handler) savePreset(w http.ResponseWriter, r *http.Request) {
	id, ok := requireID(w, r)
	if !ok {
		return
	}
	raw, ok := readPreset(w, r, false)
	if !ok {
		return
	}
	if err := h.repo.Put(r.Context(), id, raw); err != nil {
		h.fail(w, r, err)
		return
	}

	h.mu.Lock()
	if h.active == id {
		h.running = nil
	}
	h.mu.Unlock()

	h.logger.Info("Preset saved", zap.String("preset", id), zap.Int("scenes", len(raw.Scenes)))
	writeJSON(w, http.StatusOK, map[string]string{"success": "Preset has been set", "id": id})
}

func (h *Handler) addPreset(w http.ResponseWriter, r *http.Request) {
	id, ok := requireID(w, r)
	if !ok {
		return
	}
	raw, ok := readPreset(w, r, true)
	if !ok {
		return
	}
	if err := h.repo.Create(r.Context(), id, raw); err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("Preset added", zap.String("preset", id))
	writeJSON(w, http.StatusCreated, map[string]string{"success": "Preset has been added", "id": id})
}

func (h *Handler) deletePreset(w http.ResponseWriter, r *http.Request) {
	id, ok := requireID(w, r)
	if !ok {
		return
	}

	h.mu.RLock()
	active := h.active
	h.mu.RUnlock()
	if active == id {
		writeError(w, http.StatusConflict, "Can not delete current preset")
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("Preset deleted", zap.String("preset", id))
	writeJSON(w, http.StatusOK, map[string]string{"success": "Preset has been deleted"})
}

// ---------- device state ----------

func (h *Handler) activatePreset(w http.ResponseWriter, r *http.Request) {
	id, ok := requireID(w, r)
	if !ok {
		return
	}
	if _, err := h.repo.Get(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}

	h.mu.Lock()
	h.active = id
	h.running = nil
	h.mu.Unlock()

	h.logger.Info("Preset activated", zap.String("preset", id))
	writeJSON(w, http.StatusOK, map[string]string{"success": "Preset has been activated"})
}

func (h *Handler) pushPreset(w http.ResponseWriter, r *http.Request) {
	id, ok := requireID(w, r)
	if !ok {
		return
	}
	raw, ok := readPreset(w, r, false)
	if !ok {
		return
	}

	h.mu.Lock()
	h.active = id
	h.running = &raw
	h.mu.Unlock()

	h.logger.Debug("Preset pushed", zap.String("preset", id), zap.Int("scenes", len(raw.Scenes)))
	writeJSON(w, http.StatusOK, map[string]string{"success": "Preset is running"})
}

// ---------- schema ----------

func (h *Handler) listCatalog(c schema.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, c)
	}
}
