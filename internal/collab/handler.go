package collab

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/inamate/kfedit/internal/auth"
	"github.com/inamate/kfedit/internal/property"
	"github.com/inamate/kfedit/internal/typeid"
)

// PlaygroundPropertyID is open to anonymous clients and never stored.
const PlaygroundPropertyID = "prop_playground"

type TokenValidator interface {
	ValidateToken(token string) (string, error)
	GetUser(ctx context.Context, userID string) (*auth.User, error)
}

type Authorizer interface {
	Authorize(ctx context.Context, propertyID, userID string) error
}

type Handler struct {
	hub            *Hub
	tokens         TokenValidator
	access         Authorizer
	originPatterns []string
}

func NewHandler(hub *Hub, tokens TokenValidator, access Authorizer, originPatterns []string) *Handler {
	return &Handler{hub: hub, tokens: tokens, access: access, originPatterns: originPatterns}
}

// ServeWS upgrades /ws/properties/{propertyId} and joins the property's
// room. Clients authenticate with ?token=.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	propertyID := mux.Vars(r)["propertyId"]

	var userID string
	var displayName string

	if propertyID == PlaygroundPropertyID {
		userID = "anon-" + uuid.NewString()[:8]
		displayName = "Anonymous"
	} else {
		if err := typeid.Validate(propertyID, typeid.PrefixProperty); err != nil {
			http.Error(w, "property not found", http.StatusNotFound)
			return
		}

		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		var err error
		userID, err = h.tokens.ValidateToken(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		if err := h.access.Authorize(r.Context(), propertyID, userID); err != nil {
			writeAccessError(w, err)
			return
		}

		user, err := h.tokens.GetUser(r.Context(), userID)
		if err != nil {
			http.Error(w, "user not found", http.StatusInternalServerError)
			return
		}
		displayName = user.DisplayName
	}

	room, err := h.hub.Open(r.Context(), propertyID)
	if err != nil {
		writeAccessError(w, err)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	client := NewClient(h.hub, room, conn, userID, displayName, typeid.NewSessionID())
	h.hub.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}

func writeAccessError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, property.ErrNotFound):
		http.Error(w, "property not found", http.StatusNotFound)
	case errors.Is(err, property.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	default:
		slog.Error("open room", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
