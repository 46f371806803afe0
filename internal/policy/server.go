package policy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// APIHandler holds the dependencies for the policy handlers.
type APIHandler struct {
	store Store
}

// NewAPIHandler creates the handler set over the given store.
func NewAPIHandler(store Store) *APIHandler {
	return &APIHandler{store: store}
}

// Router builds the policy route table.
func (h *APIHandler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/v1/policies/sync", h.syncHandler).Methods("GET")
	r.HandleFunc("/api/v1/policies", h.createHandler).Methods("POST")
	r.HandleFunc("/api/v1/policies", h.listHandler).Methods("GET")
	r.HandleFunc("/api/v1/policies/{id:[0-9]+}", h.getHandler).Methods("GET")
	r.HandleFunc("/api/v1/policies/{id:[0-9]+}", h.updateHandler).Methods("PUT")
	r.HandleFunc("/api/v1/policies/{id:[0-9]+}", h.deleteHandler).Methods("DELETE")
	return r
}

// policyRequest uses pointer fields so create can demand every field while
// update treats absent ones as "keep the current value".
type policyRequest struct {
	AppName  *string `json:"app_name"`
	Protocol *string `json:"protocol"`
	Port     *int    `json:"port"`
	Action   *string `json:"action"`
}

func (h *APIHandler) createHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}
	if req.AppName == nil || req.Protocol == nil || req.Port == nil || req.Action == nil {
		http.Error(w, "app_name, protocol, port and action are required", http.StatusBadRequest)
		return
	}

	created, err := h.store.Create(Policy{
		AppName:  *req.AppName,
		Protocol: *req.Protocol,
		Port:     *req.Port,
		Action:   *req.Action,
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to create policy: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *APIHandler) listHandler(w http.ResponseWriter, r *http.Request) {
	offset := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", 100)

	policies, err := h.store.List(offset, limit)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to list policies: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, policies)
}

func (h *APIHandler) getHandler(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.Get(pathID(r))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *APIHandler) updateHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	p, err := h.store.Get(pathID(r))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if req.AppName != nil {
		p.AppName = *req.AppName
	}
	if req.Protocol != nil {
		p.Protocol = *req.Protocol
	}
	if req.Port != nil {
		p.Port = *req.Port
	}
	if req.Action != nil {
		p.Action = *req.Action
	}

	updated, err := h.store.Update(p)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *APIHandler) deleteHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(pathID(r)); err != nil {
		respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// syncHandler returns the full rule set for polling endpoint agents.
func (h *APIHandler) syncHandler(w http.ResponseWriter, r *http.Request) {
	policies, err := h.store.All()
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to load policies: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, policies)
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (policyRequest, bool) {
	var req policyRequest
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to read request body: %v", err), http.StatusBadRequest)
		return req, false
	}
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, fmt.Sprintf("failed to decode request: %v", err), http.StatusBadRequest)
		return req, false
	}
	return req, true
}

// pathID extracts the {id} route variable. The route pattern restricts it to
// digits, so parsing cannot fail.
func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}

func respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "Policy not found", http.StatusNotFound)
		return
	}
	http.Error(w, fmt.Sprintf("policy store error: %v", err), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to marshal response: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(jsonBytes)
}
