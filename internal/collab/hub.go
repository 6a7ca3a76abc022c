package collab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/inamate/kfedit/internal/document"
	"github.com/inamate/kfedit/internal/engine"
	"github.com/inamate/kfedit/internal/property"
)

const (
	saveInterval = 2 * time.Second
	saveTimeout  = 10 * time.Second
)

// Loader returns the latest stored document of a property.
type Loader func(ctx context.Context, propertyID string) (*document.Property, error)

// Saver stores doc as the snapshot after doc.Version and advances
// doc.Version on success.
type Saver func(ctx context.Context, doc *document.Property) error

type Room struct {
	propertyID string
	clients    map[string]*Client // clientID -> client
	presence   *PresenceManager
	session    *EditSession
}

func NewRoom(propertyID string, session *EditSession) *Room {
	return &Room{
		propertyID: propertyID,
		clients:    make(map[string]*Client),
		presence:   NewPresenceManager(),
		session:    session,
	}
}

type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // propertyID -> room
	register   chan *Client
	unregister chan *Client
	stop       chan struct{}
	done       chan struct{}

	load Loader
	save Saver
	opts engine.Options
}

func NewHub(load Loader, save Saver, opts engine.Options) *Hub {
	return &Hub{
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		load:       load,
		save:       save,
		opts:       opts,
	}
}

// Run serializes joins and leaves and saves edited rooms every
// saveInterval, until Stop.
func (h *Hub) Run() {
	defer close(h.done)

	ticker := time.NewTicker(saveInterval)
	defer ticker.Stop()

	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-ticker.C:
			h.saveAll()
		case <-h.stop:
			h.saveAll()
			return
		}
	}
}

// Stop saves every edited room and ends Run.
func (h *Hub) Stop() {
	close(h.stop)
	<-h.done
}

// Open returns the live room of a property, loading the property when no
// room is open. The room is only kept once a client registers into it.
func (h *Hub) Open(ctx context.Context, propertyID string) (*Room, error) {
	h.mu.RLock()
	room, ok := h.rooms[propertyID]
	h.mu.RUnlock()
	if ok {
		return room, nil
	}

	doc, err := h.load(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	session, err := NewEditSession(doc, h.opts)
	if err != nil {
		return nil, fmt.Errorf("open property %s: %w", propertyID, err)
	}
	return NewRoom(propertyID, session), nil
}

// Register adds client to its room and returns once the welcome is queued.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
		<-client.joined
	case <-h.done:
		client.close()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.PropertyID]
	if !ok {
		room = client.room
		h.rooms[client.PropertyID] = room
	}
	client.room = room
	room.clients[client.ClientID] = client
	h.mu.Unlock()
	defer close(client.joined)

	welcome, _ := json.Marshal(WelcomePayload{
		ClientID: client.ClientID,
		UserID:   client.UserID,
		Property: room.session.Document(),
		State:    room.session.State(),
	})
	client.Send(&Message{Type: TypeWelcome, PropertyID: room.propertyID, Payload: welcome})

	// Send current presence state to new client
	if stateMsg := room.presence.StateMessage(); stateMsg != nil {
		client.Send(stateMsg)
	}

	// Broadcast join to other clients
	joinPayload, _ := json.Marshal(PresenceJoinPayload{
		ClientID:    client.ClientID,
		UserID:      client.UserID,
		DisplayName: client.DisplayName,
	})
	joinMsg := &Message{
		Type:    TypePresenceJoin,
		UserID:  client.UserID,
		Payload: joinPayload,
	}
	h.broadcastToRoom(client.PropertyID, joinMsg, client.ClientID)

	slog.Info("client joined", "user", client.UserID, "property", client.PropertyID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.PropertyID]
	if !ok || room.clients[client.ClientID] != client {
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	client.close()
	room.presence.Remove(client.ClientID)

	empty := len(room.clients) == 0
	if empty {
		delete(h.rooms, client.PropertyID)
	}
	h.mu.Unlock()

	if empty {
		h.flush(room)
		slog.Info("room closed", "property", room.propertyID)
		return
	}

	if room.session.Leave(client.ClientID) {
		h.broadcastState(room)
	}

	// Broadcast leave to remaining clients
	leavePayload, _ := json.Marshal(PresenceLeavePayload{
		ClientID: client.ClientID,
		UserID:   client.UserID,
	})
	leaveMsg := &Message{
		Type:    TypePresenceLeave,
		UserID:  client.UserID,
		Payload: leavePayload,
	}
	h.broadcastToRoom(client.PropertyID, leaveMsg, "")

	slog.Info("client left", "user", client.UserID, "property", client.PropertyID)
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	switch msg.Type {
	case TypePresenceUpdate:
		h.handlePresenceUpdate(sender, msg)
	case TypeEdit:
		h.handleEdit(sender, msg)
	default:
		slog.Warn("unknown message type", "type", msg.Type, "user", sender.UserID)
	}
}

func (h *Hub) handleEdit(sender *Client, msg *Message) {
	var op EditPayload
	if err := json.Unmarshal(msg.Payload, &op); err != nil {
		slog.Warn("invalid edit payload", "error", err)
		sender.SendError("", "invalid edit payload")
		return
	}

	room := sender.room
	changed, err := room.session.Apply(sender.ClientID, op)
	if err != nil {
		slog.Debug("edit refused", "op", op.Op, "user", sender.UserID, "error", err)
		sender.SendError(op.Op, err.Error())
		return
	}
	if changed {
		h.broadcastState(room)
	}
}

func (h *Hub) handlePresenceUpdate(sender *Client, msg *Message) {
	var presence PresencePayload
	if err := json.Unmarshal(msg.Payload, &presence); err != nil {
		slog.Warn("invalid presence payload", "error", err)
		return
	}

	presence.UserID = sender.UserID
	presence.DisplayName = sender.DisplayName
	sender.room.presence.Update(sender.ClientID, &presence)

	// Broadcast to other clients in room
	outPayload, _ := json.Marshal(presence)
	outMsg := &Message{
		Type:     TypePresenceUpdate,
		ClientID: sender.ClientID,
		UserID:   sender.UserID,
		Payload:  outPayload,
	}
	h.broadcastToRoom(sender.PropertyID, outMsg, sender.ClientID)
}

// PropertySaved reloads the live room of a property edited elsewhere.
func (h *Hub) PropertySaved(doc *document.Property) {
	h.mu.RLock()
	room, ok := h.rooms[doc.ID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	if err := room.session.Reload(doc); err != nil {
		slog.Error("reload room", "property", doc.ID, "error", err)
		return
	}
	h.broadcastSaved(room, doc.Version)
	h.broadcastState(room)
}

func (h *Hub) saveAll() {
	h.mu.RLock()
	rooms := make([]*Room, 0, len(h.rooms))
	for _, r := range h.rooms {
		rooms = append(rooms, r)
	}
	h.mu.RUnlock()

	for _, r := range rooms {
		h.flush(r)
	}
}

// flush stores the room's edits, if any.
func (h *Hub) flush(room *Room) {
	doc, ok := room.session.Pending()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	err := h.save(ctx, doc)
	switch {
	case err == nil:
		room.session.MarkSaved(doc, doc.Version)
		h.broadcastSaved(room, doc.Version)
		slog.Debug("property saved", "property", room.propertyID, "version", doc.Version)
	case errors.Is(err, property.ErrConflict):
		slog.Warn("live edits lost to a newer save", "property", room.propertyID)
		latest, err := h.load(ctx, room.propertyID)
		if err != nil {
			slog.Error("reload after conflict", "property", room.propertyID, "error", err)
			return
		}
		if err := room.session.Reload(latest); err != nil {
			slog.Error("reload after conflict", "property", room.propertyID, "error", err)
			return
		}
		h.broadcastState(room)
	default:
		slog.Error("save property", "property", room.propertyID, "error", err)
	}
}

func (h *Hub) broadcastState(room *Room) {
	st := room.session.State()
	payload, err := json.Marshal(st)
	if err != nil {
		slog.Error("marshal state", "error", err)
		return
	}
	h.broadcastToRoom(room.propertyID, &Message{
		Type:       TypeState,
		PropertyID: room.propertyID,
		Seq:        int64(st.Revision),
		Payload:    payload,
	}, "")
}

func (h *Hub) broadcastSaved(room *Room, version int) {
	payload, _ := json.Marshal(SavedPayload{Version: version})
	h.broadcastToRoom(room.propertyID, &Message{
		Type:       TypeSaved,
		PropertyID: room.propertyID,
		Payload:    payload,
	}, "")
}

func (h *Hub) broadcastToRoom(propertyID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	room, ok := h.rooms[propertyID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Send(msg)
	}
}
