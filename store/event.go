package store

import (
	"context"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"
)

// Event is the object representing a scheduled block of time.
type Event struct {
	ID        string    `json:"id"`
	CreatorID int32     `json:"creator_id"`
	RowStatus RowStatus `json:"row_status,omitempty"`
	CreatedTs int64     `json:"created_ts,omitempty"`
	UpdatedTs int64     `json:"updated_ts,omitempty"`

	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	AllDay      bool      `json:"all_day"`
	Categories  []string  `json:"categories"`
}

// FindEvent is the find condition for event.
type FindEvent struct {
	ID        *string
	CreatorID *int32
	RowStatus *RowStatus

	// Half-open range filter: events with start < EndBefore and end > StartAfter.
	// A zero-length event at t matches when StartAfter < t < EndBefore.
	StartAfter *time.Time
	EndBefore  *time.Time

	Limit  *int
	Offset *int
}

// UpdateEvent is the update request for event.
type UpdateEvent struct {
	ID          string
	UpdatedTs   *int64
	RowStatus   *RowStatus
	Title       *string
	Description *string
	Location    *string
	Start       *time.Time
	End         *time.Time
	AllDay      *bool
	Categories  []string
}

// DeleteEvent is the delete request for event.
type DeleteEvent struct {
	ID string
}

// Duration returns the length of the event.
func (e *Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// Clone returns a deep copy, so callers can hand out snapshots without sharing slices.
func (e *Event) Clone() *Event {
	c := *e
	if e.Categories != nil {
		c.Categories = append([]string(nil), e.Categories...)
	}
	return &c
}

// CreateEvent creates a new event. An empty ID is filled with a short uuid.
func (s *Store) CreateEvent(ctx context.Context, create *Event) (*Event, error) {
	if create.ID == "" {
		create.ID = shortuuid.New()
	}
	if create.Start.After(create.End) {
		return nil, errors.Errorf("event %s starts after it ends", create.ID)
	}
	return s.driver.CreateEvent(ctx, create)
}

// ListEvents lists events with filter.
func (s *Store) ListEvents(ctx context.Context, find *FindEvent) ([]*Event, error) {
	return s.driver.ListEvents(ctx, find)
}

// GetEvent gets an event, returning nil when nothing matches.
func (s *Store) GetEvent(ctx context.Context, find *FindEvent) (*Event, error) {
	list, err := s.driver.ListEvents(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// UpdateEvent updates an event.
func (s *Store) UpdateEvent(ctx context.Context, update *UpdateEvent) error {
	return s.driver.UpdateEvent(ctx, update)
}

// DeleteEvent deletes an event.
func (s *Store) DeleteEvent(ctx context.Context, delete *DeleteEvent) error {
	return s.driver.DeleteEvent(ctx, delete)
}

// FetchEvents returns the user's active events overlapping [start, end), ordered by start.
func (s *Store) FetchEvents(ctx context.Context, userID int32, start, end time.Time) ([]*Event, error) {
	normal := Normal
	return s.driver.ListEvents(ctx, &FindEvent{
		CreatorID:  &userID,
		RowStatus:  &normal,
		StartAfter: &start,
		EndBefore:  &end,
	})
}

// FetchEventByID returns the user's event with the given id, or nil when absent.
func (s *Store) FetchEventByID(ctx context.Context, userID int32, id string) (*Event, error) {
	normal := Normal
	return s.GetEvent(ctx, &FindEvent{
		ID:        &id,
		CreatorID: &userID,
		RowStatus: &normal,
	})
}

// PersistEvent creates the event when it has no id or does not exist yet, otherwise
// overwrites its mutable fields.
func (s *Store) PersistEvent(ctx context.Context, event *Event) (*Event, error) {
	if event.ID != "" {
		existing, err := s.GetEvent(ctx, &FindEvent{ID: &event.ID})
		if err != nil {
			return nil, err
		}
		if existing != nil {
			updatedTs := time.Now().Unix()
			update := &UpdateEvent{
				ID:          event.ID,
				UpdatedTs:   &updatedTs,
				Title:       &event.Title,
				Description: &event.Description,
				Location:    &event.Location,
				Start:       &event.Start,
				End:         &event.End,
				AllDay:      &event.AllDay,
				Categories:  event.Categories,
			}
			if update.Categories == nil {
				update.Categories = []string{}
			}
			if err := s.driver.UpdateEvent(ctx, update); err != nil {
				return nil, err
			}
			return s.GetEvent(ctx, &FindEvent{ID: &event.ID})
		}
	}
	return s.CreateEvent(ctx, event)
}
