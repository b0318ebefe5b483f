// Package ics serves events from an iCalendar file as a read-only event repository,
// for offline analysis without a database.
package ics

import (
	"context"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/pkg/errors"
	"github.com/teambition/rrule-go"

	"github.com/hrygo/calsense/server/service/calendar"
	"github.com/hrygo/calsense/store"
)

// occurrenceLayout formats the start of a recurring instance inside its event id.
const occurrenceLayout = "20060102T150405Z"

// ErrReadOnly is returned by PersistEvent.
var ErrReadOnly = errors.New("ics repository is read-only")

type recurringEvent struct {
	template *store.Event
	set      *rrule.Set
}

// Repository holds the events of one parsed calendar. The calendar is served to every
// user id; CreatorID of returned events is the caller's user id.
type Repository struct {
	single    []*store.Event
	recurring []recurringEvent
}

// LoadFile parses the iCalendar file at path. Floating times are read in loc.
func LoadFile(path string, loc *time.Location) (*Repository, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()
	return Load(f, loc)
}

// Load parses every VCALENDAR in r.
func Load(r io.Reader, loc *time.Location) (*Repository, error) {
	if loc == nil {
		loc = time.UTC
	}
	repo := &Repository{}
	dec := ical.NewDecoder(r)
	for {
		cal, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to decode calendar")
		}
		for _, ev := range cal.Events() {
			if err := repo.add(ev, loc); err != nil {
				return nil, err
			}
		}
	}
	sort.SliceStable(repo.single, func(i, j int) bool {
		return repo.single[i].Start.Before(repo.single[j].Start)
	})
	return repo, nil
}

func (r *Repository) add(ev ical.Event, loc *time.Location) error {
	uid, _ := ev.Props.Text(ical.PropUID)
	if status, _ := ev.Props.Text(ical.PropStatus); strings.EqualFold(status, "CANCELLED") {
		return nil
	}
	start, err := ev.DateTimeStart(loc)
	if err != nil {
		return errors.Wrapf(err, "event %q: invalid DTSTART", uid)
	}
	end, err := ev.DateTimeEnd(loc)
	if err != nil {
		return errors.Wrapf(err, "event %q: invalid DTEND", uid)
	}
	if end.IsZero() {
		end = start
	}
	if start.After(end) {
		return errors.Errorf("event %q starts after it ends", uid)
	}

	event := &store.Event{
		ID:         uid,
		RowStatus:  store.Normal,
		Start:      start,
		End:        end,
		Categories: categories(ev),
	}
	event.Title, _ = ev.Props.Text(ical.PropSummary)
	event.Description, _ = ev.Props.Text(ical.PropDescription)
	event.Location, _ = ev.Props.Text(ical.PropLocation)
	if prop := ev.Props.Get(ical.PropDateTimeStart); prop != nil && prop.ValueType() == ical.ValueDate {
		event.AllDay = true
	}

	set, err := ev.RecurrenceSet(loc)
	if err != nil {
		return errors.Wrapf(err, "event %q: invalid recurrence", uid)
	}
	if set != nil {
		r.recurring = append(r.recurring, recurringEvent{template: event, set: set})
		return nil
	}
	r.single = append(r.single, event)
	return nil
}

// categories flattens every CATEGORIES property, dropping blanks and repeats.
func categories(ev ical.Event) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, prop := range ev.Props.Values(ical.PropCategories) {
		for _, c := range strings.Split(prop.Value, ",") {
			if c = strings.TrimSpace(c); c != "" && !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}

// FetchEvents returns the events overlapping [start, end) with recurring events expanded,
// ordered by start.
func (r *Repository) FetchEvents(ctx context.Context, userID int32, start, end time.Time) ([]*store.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	window := calendar.TimeInterval{Start: start, End: end}
	var events []*store.Event
	for _, e := range r.single {
		if calendar.Overlaps(calendar.EventInterval(e), window) {
			events = append(events, owned(e, userID))
		}
	}
	for _, rec := range r.recurring {
		length := rec.template.Duration()
		for _, occurrence := range rec.set.Between(start.Add(-length), end, true) {
			instance := rec.instance(occurrence)
			if calendar.Overlaps(calendar.EventInterval(instance), window) {
				events = append(events, owned(instance, userID))
			}
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})
	return events, nil
}

// FetchEventByID returns the event with id, or nil. Recurring instances are addressed as
// "<uid>/<start in UTC, 20060102T150405Z>".
func (r *Repository) FetchEventByID(ctx context.Context, userID int32, id string) (*store.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, e := range r.single {
		if e.ID == id {
			return owned(e, userID), nil
		}
	}

	uid, stamp, ok := strings.Cut(id, "/")
	if !ok {
		return nil, nil
	}
	at, err := time.Parse(occurrenceLayout, stamp)
	if err != nil {
		return nil, nil
	}
	for _, rec := range r.recurring {
		if rec.template.ID != uid {
			continue
		}
		for _, occurrence := range rec.set.Between(at, at, true) {
			if occurrence.Equal(at) {
				return owned(rec.instance(occurrence), userID), nil
			}
		}
	}
	return nil, nil
}

// PersistEvent always fails; the file is never written.
func (r *Repository) PersistEvent(ctx context.Context, event *store.Event) (*store.Event, error) {
	return nil, errors.Wrapf(ErrReadOnly, "cannot persist event %s", event.ID)
}

func (rec recurringEvent) instance(start time.Time) *store.Event {
	e := rec.template.Clone()
	length := rec.template.Duration()
	e.ID = rec.template.ID + "/" + start.UTC().Format(occurrenceLayout)
	e.Start = start
	e.End = start.Add(length)
	return e
}

func owned(e *store.Event, userID int32) *store.Event {
	c := e.Clone()
	c.CreatorID = userID
	return c
}

