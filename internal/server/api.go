package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/livetemplate/newyear/internal/store"
)

// maxRequestBodySize limits the size of incoming request bodies (64KB)
const maxRequestBodySize = 64 << 10

// WishHandler serves the wish persistence API at /wish.
//
//	POST /wish         {"name": "...", "wish": "..."}  -> {"success": true}
//	GET  /wish?name=   -> {"wishes": ["...", ...]}
type WishHandler struct {
	store store.WishStore
}

// NewWishHandler creates the handler over s
func NewWishHandler(s store.WishStore) *WishHandler {
	return &WishHandler{store: s}
}

type saveRequest struct {
	Name string `json:"name"`
	Wish string `json:"wish"`
}

func (h *WishHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleGet(w, r)
	case http.MethodPost:
		h.handlePost(w, r)
	default:
		// OPTIONS (preflight) is answered by the CORS middleware
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *WishHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "Name parameter is required")
		return
	}

	wishes, err := h.store.List(r.Context(), name)
	if err != nil {
		log.Printf("[API] List failed for %q: %v", name, err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"wishes": wishes})
}

func (h *WishHandler) handlePost(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Name == "" || req.Wish == "" {
		writeError(w, http.StatusBadRequest, "name and wish are required")
		return
	}

	if err := h.store.Save(r.Context(), req.Name, req.Wish); err != nil {
		log.Printf("[API] Save failed for %q: %v", req.Name, err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[API] Error encoding JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
