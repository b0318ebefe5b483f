package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hrygo/calsense/store"
)

func (d *DB) CreateEvent(ctx context.Context, create *store.Event) (*store.Event, error) {
	categories, err := marshalCategories(create.Categories)
	if err != nil {
		return nil, fmt.Errorf("failed to encode categories: %w", err)
	}

	fields := []string{
		"id", "creator_id", "title", "description", "location",
		"start_ts", "end_ts", "all_day", "categories",
	}
	placeholderValues := []any{
		create.ID, create.CreatorID, create.Title, create.Description, create.Location,
		create.Start.Unix(), create.End.Unix(), create.AllDay, categories,
	}

	// Add optional timestamps
	if create.CreatedTs != 0 {
		fields = append(fields, "created_ts")
		placeholderValues = append(placeholderValues, create.CreatedTs)
	}
	if create.UpdatedTs != 0 {
		fields = append(fields, "updated_ts")
		placeholderValues = append(placeholderValues, create.UpdatedTs)
	}

	stmt := `INSERT INTO event (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(placeholderValues)) + `)
		RETURNING created_ts, updated_ts, row_status`

	if err := d.db.QueryRowContext(ctx, stmt, placeholderValues...).Scan(
		&create.CreatedTs,
		&create.UpdatedTs,
		&create.RowStatus,
	); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	if create.Categories == nil {
		create.Categories = []string{}
	}

	return create, nil
}

func (d *DB) ListEvents(ctx context.Context, find *store.FindEvent) ([]*store.Event, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "event.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.CreatorID; v != nil {
		where, args = append(where, "event.creator_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.RowStatus; v != nil {
		where, args = append(where, "event.row_status = "+placeholder(len(args)+1)), append(args, *v)
	}
	// Half-open overlap with the query range: event.start < range.end AND event.end > range.start.
	if v := find.EndBefore; v != nil {
		where, args = append(where, "event.start_ts < "+placeholder(len(args)+1)), append(args, v.Unix())
	}
	if v := find.StartAfter; v != nil {
		where, args = append(where, "event.end_ts > "+placeholder(len(args)+1)), append(args, v.Unix())
	}

	query := `
		SELECT
			id, creator_id, created_ts, updated_ts, row_status,
			title, description, location,
			start_ts, end_ts, all_day, categories
		FROM event
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY event.start_ts ASC, event.created_ts ASC`

	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
		if find.Offset != nil {
			query = fmt.Sprintf("%s OFFSET %d", query, *find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Event, 0)
	for rows.Next() {
		var event store.Event
		var startTs, endTs int64
		var categories string

		if err := rows.Scan(
			&event.ID,
			&event.CreatorID,
			&event.CreatedTs,
			&event.UpdatedTs,
			&event.RowStatus,
			&event.Title,
			&event.Description,
			&event.Location,
			&startTs,
			&endTs,
			&event.AllDay,
			&categories,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}

		event.Start = time.Unix(startTs, 0)
		event.End = time.Unix(endTs, 0)
		if event.Categories, err = unmarshalCategories(categories); err != nil {
			return nil, fmt.Errorf("failed to decode categories of event %s: %w", event.ID, err)
		}

		list = append(list, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}

	return list, nil
}

func (d *DB) UpdateEvent(ctx context.Context, update *store.UpdateEvent) error {
	set, args := []string{}, []any{}

	if v := update.UpdatedTs; v != nil {
		set, args = append(set, "updated_ts = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.RowStatus; v != nil {
		set, args = append(set, "row_status = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Title; v != nil {
		set, args = append(set, "title = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Description; v != nil {
		set, args = append(set, "description = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Location; v != nil {
		set, args = append(set, "location = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Start; v != nil {
		set, args = append(set, "start_ts = "+placeholder(len(args)+1)), append(args, v.Unix())
	}
	if v := update.End; v != nil {
		set, args = append(set, "end_ts = "+placeholder(len(args)+1)), append(args, v.Unix())
	}
	if v := update.AllDay; v != nil {
		set, args = append(set, "all_day = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Categories; v != nil {
		categories, err := marshalCategories(v)
		if err != nil {
			return fmt.Errorf("failed to encode categories: %w", err)
		}
		set, args = append(set, "categories = "+placeholder(len(args)+1)), append(args, categories)
	}

	// If no fields to update, return early
	if len(set) == 0 {
		return nil
	}

	args = append(args, update.ID)

	stmt := `UPDATE event SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args))
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}

	return nil
}

func (d *DB) DeleteEvent(ctx context.Context, delete *store.DeleteEvent) error {
	stmt := `DELETE FROM event WHERE id = ` + placeholder(1)
	result, err := d.db.ExecContext(ctx, stmt, delete.ID)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("event not found")
	}

	return nil
}
