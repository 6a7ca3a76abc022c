package property

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/inamate/kfedit/internal/document"
	"github.com/inamate/kfedit/internal/engine"
	"github.com/inamate/kfedit/internal/keyframe"
	"github.com/inamate/kfedit/internal/store"
	"github.com/inamate/kfedit/internal/typeid"
)

var (
	ErrNotFound  = errors.New("property not found")
	ErrForbidden = errors.New("forbidden")
	ErrConflict  = errors.New("property was saved by someone else")
)

// Store is the persistence the service needs. *store.Store implements it.
type Store interface {
	CreateProperty(ctx context.Context, p store.Property, first store.Snapshot) (store.Property, error)
	GetProperty(ctx context.Context, id string) (store.Property, error)
	ListProperties(ctx context.Context, ownerID string) ([]store.Property, error)
	SaveSnapshot(ctx context.Context, snap store.Snapshot) error
	LatestSnapshot(ctx context.Context, propertyID string) (store.Snapshot, error)
}

var _ Store = (*store.Store)(nil)

// Listener is told about every saved document. The collaboration hub uses
// it to reload live rooms after a REST edit.
type Listener interface {
	PropertySaved(p *document.Property)
}

type Service struct {
	store        Store
	opts         engine.Options
	interpolator string // used when a new property names none
	listener     Listener
}

func NewService(s Store, opts engine.Options, interpolator string) *Service {
	return &Service{store: s, opts: opts, interpolator: interpolator}
}

// SetListener registers l for save notifications.
func (s *Service) SetListener(l Listener) {
	s.listener = l
}

// EngineOptions are the panel options engines built by the service use.
func (s *Service) EngineOptions() engine.Options {
	return s.opts
}

type Summary struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Kind      keyframe.Kind `json:"kind"`
	OwnerID   string        `json:"ownerId"`
	CreatedAt string        `json:"createdAt"`
	UpdatedAt string        `json:"updatedAt"`
}

type CreateParams struct {
	Name         string          `json:"name"`
	Kind         keyframe.Kind   `json:"kind"`
	Source       document.Source `json:"source"`
	ClipLength   int             `json:"clipLength"`
	Interpolator string          `json:"interpolator,omitempty"`
	AspectLocked bool            `json:"aspectLocked,omitempty"`
}

func (s *Service) Create(ctx context.Context, ownerID string, params CreateParams) (*document.Property, error) {
	doc, err := document.NewProperty(typeid.NewPropertyID(), params.Name, params.Kind, params.Source, params.ClipLength)
	if err != nil {
		return nil, err
	}
	doc.Interpolator = params.Interpolator
	if doc.Interpolator == "" {
		doc.Interpolator = s.interpolator
	}
	doc.AspectLocked = params.AspectLocked
	doc.Version = 1
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}

	row, err := s.store.CreateProperty(ctx,
		store.Property{ID: doc.ID, OwnerID: ownerID, Name: doc.Name, Kind: string(doc.Kind)},
		store.Snapshot{ID: typeid.NewSnapshotID(), Version: doc.Version, Document: data})
	if err != nil {
		return nil, fmt.Errorf("create property: %w", err)
	}

	doc.CreatedAt = row.CreatedAt.Format(time.RFC3339)
	doc.UpdatedAt = row.UpdatedAt.Format(time.RFC3339)
	return doc, nil
}

// Get returns the latest document of a property owned by userID.
func (s *Service) Get(ctx context.Context, id, userID string) (*document.Property, error) {
	row, err := s.authorize(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	snap, err := s.store.LatestSnapshot(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	doc, err := document.Parse(snap.Document)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", snap.ID, err)
	}
	doc.Version = snap.Version
	doc.CreatedAt = row.CreatedAt.Format(time.RFC3339)
	doc.UpdatedAt = row.UpdatedAt.Format(time.RFC3339)
	return doc, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Summary, error) {
	rows, err := s.store.ListProperties(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}

	out := make([]Summary, len(rows))
	for i, p := range rows {
		out[i] = Summary{
			ID:        p.ID,
			Name:      p.Name,
			Kind:      keyframe.Kind(p.Kind),
			OwnerID:   p.OwnerID,
			CreatedAt: p.CreatedAt.Format(time.RFC3339),
			UpdatedAt: p.UpdatedAt.Format(time.RFC3339),
		}
	}
	return out, nil
}

// Save stores doc as the next snapshot. doc.Version must be the version it
// was loaded at; on success it is advanced. A stale version gives
// ErrConflict.
func (s *Service) Save(ctx context.Context, userID string, doc *document.Property) error {
	if _, err := s.authorize(ctx, doc.ID, userID); err != nil {
		return err
	}
	if err := s.save(ctx, doc); err != nil {
		return err
	}
	if s.listener != nil {
		s.listener.PropertySaved(doc)
	}
	return nil
}

// SaveLive stores a document edited in a collaboration room. The room
// already checked access when the client joined, and is not notified.
func (s *Service) SaveLive(ctx context.Context, doc *document.Property) error {
	return s.save(ctx, doc)
}

func (s *Service) save(ctx context.Context, doc *document.Property) error {
	if err := doc.Validate(); err != nil {
		return err
	}

	next := *doc
	next.Version = doc.Version + 1
	data, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	err = s.store.SaveSnapshot(ctx, store.Snapshot{
		ID:         typeid.NewSnapshotID(),
		PropertyID: doc.ID,
		Version:    next.Version,
		Document:   data,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return ErrConflict
		}
		return fmt.Errorf("save snapshot: %w", err)
	}

	doc.Version = next.Version
	return nil
}

// Engine loads a property into a new engine with the playhead at frame.
func (s *Service) Engine(ctx context.Context, id, userID string, frame int) (*engine.Engine, error) {
	doc, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	e, err := engine.New(doc, s.opts)
	if err != nil {
		return nil, err
	}
	e.SetClipFrame(frame)
	return e, nil
}

// Load returns the latest document without an access check. It backs
// collaboration rooms, which authorize on join.
func (s *Service) Load(ctx context.Context, id string) (*document.Property, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	row, err := s.store.GetProperty(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.Get(ctx, id, row.OwnerID)
}

// Authorize reports whether userID may edit the property.
func (s *Service) Authorize(ctx context.Context, id, userID string) error {
	_, err := s.authorize(ctx, id, userID)
	return err
}

func (s *Service) authorize(ctx context.Context, id, userID string) (store.Property, error) {
	if err := checkID(id); err != nil {
		return store.Property{}, err
	}
	row, err := s.store.GetProperty(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Property{}, ErrNotFound
		}
		return store.Property{}, fmt.Errorf("get property: %w", err)
	}
	if row.OwnerID != userID {
		return store.Property{}, ErrForbidden
	}
	return row, nil
}

// checkID rejects ids that are not property typeids. Nothing with such an
// id can exist.
func checkID(id string) error {
	if err := typeid.Validate(id, typeid.PrefixProperty); err != nil {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return nil
}
