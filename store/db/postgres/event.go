package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/calsense/store"
)

func (d *DB) CreateEvent(ctx context.Context, create *store.Event) (*store.Event, error) {
	categories, err := marshalCategories(create.Categories)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode categories")
	}

	fields := []string{
		"id", "creator_id", "title", "description", "location",
		"start_ts", "end_ts", "all_day", "categories",
	}
	args := []any{
		create.ID, create.CreatorID, create.Title, create.Description, create.Location,
		create.Start.Unix(), create.End.Unix(), create.AllDay, categories,
	}
	if create.CreatedTs != 0 {
		fields = append(fields, "created_ts")
		args = append(args, create.CreatedTs)
	}
	if create.UpdatedTs != 0 {
		fields = append(fields, "updated_ts")
		args = append(args, create.UpdatedTs)
	}

	stmt := "INSERT INTO event (" + strings.Join(fields, ", ") + ") VALUES (" + placeholders(len(args)) + ") RETURNING created_ts, updated_ts, row_status"
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&create.CreatedTs,
		&create.UpdatedTs,
		&create.RowStatus,
	); err != nil {
		return nil, errors.Wrap(err, "failed to create event")
	}
	if create.Categories == nil {
		create.Categories = []string{}
	}
	return create, nil
}

func (d *DB) ListEvents(ctx context.Context, find *store.FindEvent) ([]*store.Event, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.CreatorID; v != nil {
		where, args = append(where, "creator_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.RowStatus; v != nil {
		where, args = append(where, "row_status = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.EndBefore; v != nil {
		where, args = append(where, "start_ts < "+placeholder(len(args)+1)), append(args, v.Unix())
	}
	if v := find.StartAfter; v != nil {
		where, args = append(where, "end_ts > "+placeholder(len(args)+1)), append(args, v.Unix())
	}

	query := `SELECT id, creator_id, created_ts, updated_ts, row_status, title, description, location, start_ts, end_ts, all_day, categories
		FROM event
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY start_ts ASC, created_ts ASC`
	if find.Limit != nil {
		query += " LIMIT " + placeholder(len(args)+1)
		args = append(args, *find.Limit)
		if find.Offset != nil {
			query += " OFFSET " + placeholder(len(args)+1)
			args = append(args, *find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query events")
	}
	defer rows.Close()

	list := make([]*store.Event, 0)
	for rows.Next() {
		event := &store.Event{}
		var startTs, endTs int64
		var categories []byte
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
			return nil, errors.Wrap(err, "failed to scan event")
		}
		event.Start = time.Unix(startTs, 0)
		event.End = time.Unix(endTs, 0)
		if event.Categories, err = unmarshalCategories(categories); err != nil {
			return nil, errors.Wrapf(err, "failed to decode categories of event %s", event.ID)
		}
		list = append(list, event)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate events")
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
			return errors.Wrap(err, "failed to encode categories")
		}
		set, args = append(set, "categories = "+placeholder(len(args)+1)), append(args, categories)
	}
	if len(set) == 0 {
		return nil
	}

	args = append(args, update.ID)
	stmt := "UPDATE event SET " + strings.Join(set, ", ") + " WHERE id = " + placeholder(len(args))
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return errors.Wrap(err, "failed to update event")
	}
	return nil
}

func (d *DB) DeleteEvent(ctx context.Context, delete *store.DeleteEvent) error {
	result, err := d.db.ExecContext(ctx, "DELETE FROM event WHERE id = $1", delete.ID)
	if err != nil {
		return errors.Wrap(err, "failed to delete event")
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return errors.New("event not found")
	}
	return nil
}
