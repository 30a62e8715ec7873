package settings

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ohler55/ojg/oj"

	"github.com/mpapenbr/iracehud-go/log"
)

const maxBodySize = 64 * 1024

// Handler serves the settings over HTTP
//
//	GET    /settings                    overlay ids
//	GET    /settings/{overlay}          current document, ETag is its digest
//	GET    /settings/{overlay}/schema   JSON schema of the document
//	PUT    /settings/{overlay}          replace document, honors If-Match
//	DELETE /settings/{overlay}          back to defaults
type Handler struct {
	log *log.Logger
	svc *Service
	mux *http.ServeMux
}

func NewHandler(svc *Service) *Handler {
	ret := &Handler{
		log: svc.log.Named("http"),
		svc: svc,
		mux: http.NewServeMux(),
	}
	ret.mux.HandleFunc("GET /settings", ret.list)
	ret.mux.HandleFunc("GET /settings/{overlay}", ret.get)
	ret.mux.HandleFunc("GET /settings/{overlay}/schema", ret.schema)
	ret.mux.HandleFunc("PUT /settings/{overlay}", ret.put)
	ret.mux.HandleFunc("DELETE /settings/{overlay}", ret.reset)
	return ret
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	data, err := oj.Marshal(Overlays())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.Get(r.Context(), r.PathValue("overlay"))
	if err != nil {
		h.fail(w, err)
		return
	}
	etag := etagOf(doc)
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, doc.Data)
}

func (h *Handler) schema(w http.ResponseWriter, r *http.Request) {
	data, err := Schema(r.PathValue("overlay"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (h *Handler) put(w http.ResponseWriter, r *http.Request) {
	overlay := r.PathValue("overlay")
	if match := r.Header.Get("If-Match"); match != "" {
		current, err := h.svc.Get(r.Context(), overlay)
		if err != nil {
			h.fail(w, err)
			return
		}
		if match != etagOf(current) {
			h.writeError(w, http.StatusPreconditionFailed, "settings were changed concurrently")
			return
		}
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	doc, err := h.svc.Put(r.Context(), overlay, body)
	if err != nil {
		h.fail(w, err)
		return
	}
	w.Header().Set("ETag", etagOf(doc))
	writeJSON(w, http.StatusOK, doc.Data)
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.Reset(r.Context(), r.PathValue("overlay"))
	if err != nil {
		h.fail(w, err)
		return
	}
	w.Header().Set("ETag", etagOf(doc))
	writeJSON(w, http.StatusOK, doc.Data)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnknownOverlay):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidSettings):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error("settings request failed", log.ErrorField(err))
		h.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	data, err := oj.Marshal(map[string]any{"error": msg})
	if err != nil {
		data = []byte(`{"error":"internal error"}`)
	}
	writeJSON(w, status, data)
}

func writeJSON(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // client may be gone
	w.Write(data)
}

func etagOf(doc *Document) string {
	return fmt.Sprintf("%q", doc.Digest)
}
