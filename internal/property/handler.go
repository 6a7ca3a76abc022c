package property

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/inamate/kfedit/internal/auth"
	"github.com/inamate/kfedit/internal/document"
	"github.com/inamate/kfedit/internal/keyframe"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes registers the property endpoints on r, which must already carry
// the auth middleware.
func (h *Handler) Routes(r *mux.Router) {
	r.HandleFunc("/properties", h.List).Methods("GET")
	r.HandleFunc("/properties", h.Create).Methods("POST")
	r.HandleFunc("/properties/{propertyId}", h.Get).Methods("GET")
	r.HandleFunc("/properties/{propertyId}", h.Put).Methods("PUT")
	r.HandleFunc("/properties/{propertyId}/value", h.Value).Methods("GET")
	r.HandleFunc("/properties/{propertyId}/keyframes", h.AddKeyframe).Methods("POST")
	r.HandleFunc("/properties/{propertyId}/keyframes/{index:[0-9]+}", h.DeleteKeyframe).Methods("DELETE")
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req CreateParams
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	doc, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		HandleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	doc, err := h.service.Get(r.Context(), mux.Vars(r)["propertyId"], userID)
	if err != nil {
		HandleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	props, err := h.service.List(r.Context(), userID)
	if err != nil {
		HandleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, props)
}

// Put replaces the keyframes of a property. The body is the full document
// at the version it was read.
func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	id := mux.Vars(r)["propertyId"]

	var doc document.Property
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	doc.ID = id

	if err := h.service.Save(r.Context(), userID, &doc); err != nil {
		HandleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &doc)
}

type valueResponse struct {
	Frame   int           `json:"frame"`
	Kind    keyframe.Kind `json:"kind"`
	Value   []float64     `json:"value"`
	Opacity *float64      `json:"opacity,omitempty"`
}

// Value evaluates the property at ?frame=.
func (h *Handler) Value(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	frame, err := strconv.Atoi(r.URL.Query().Get("frame"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "frame must be an integer"})
		return
	}

	doc, err := h.service.Get(r.Context(), mux.Vars(r)["propertyId"], userID)
	if err != nil {
		HandleError(w, err)
		return
	}
	track, err := doc.Track()
	if err != nil {
		HandleError(w, err)
		return
	}

	resp := valueResponse{Frame: frame, Kind: track.Kind(), Value: keyframe.Components(track.Evaluate(frame))}
	if o := track.OpacityAt(frame); o.Valid {
		resp.Opacity = &o.Value
	}
	writeJSON(w, http.StatusOK, resp)
}

// AddKeyframe inserts or replaces the keyframe at the body's frame.
func (h *Handler) AddKeyframe(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req document.Keyframe
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	h.editTrack(w, r, userID, func(doc *document.Property, t *keyframe.Track) error {
		value, err := keyframe.FromComponents(doc.Kind, req.Value)
		if err != nil {
			return errors.Join(document.ErrInvalidDocument, err)
		}
		mode, err := keyframe.ParseMode(req.Mode)
		if err != nil {
			return errors.Join(document.ErrInvalidDocument, err)
		}
		kf := keyframe.Keyframe{Frame: req.Frame, Value: value, Mode: mode}
		if req.Opacity != nil {
			kf.Opacity = keyframe.OpacityOf(*req.Opacity)
		}
		if err := t.AddKeyframeWithValue(kf); err != nil {
			return errors.Join(document.ErrInvalidDocument, err)
		}
		return nil
	})
}

func (h *Handler) DeleteKeyframe(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid index"})
		return
	}

	h.editTrack(w, r, userID, func(_ *document.Property, t *keyframe.Track) error {
		if index == 0 || index >= t.Len() {
			return errors.Join(document.ErrInvalidDocument, errors.New("keyframe cannot be deleted"))
		}
		t.DeleteKeyframe(index)
		return nil
	})
}

func (h *Handler) editTrack(w http.ResponseWriter, r *http.Request, userID string, edit func(*document.Property, *keyframe.Track) error) {
	doc, err := h.service.Get(r.Context(), mux.Vars(r)["propertyId"], userID)
	if err != nil {
		HandleError(w, err)
		return
	}
	track, err := doc.Track()
	if err != nil {
		HandleError(w, err)
		return
	}
	if err := edit(doc, track); err != nil {
		HandleError(w, err)
		return
	}
	doc.SetTrack(track)

	if err := h.service.Save(r.Context(), userID, doc); err != nil {
		HandleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// HandleError writes the HTTP form of a service error.
func HandleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
	case errors.Is(err, ErrConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, document.ErrInvalidDocument):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		slog.Error("service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
