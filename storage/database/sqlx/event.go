package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/jkazadi/kampus/core/event"
)

type (
	eventRow struct {
		ID          string      `db:"id"`
		Title       string      `db:"title"`
		Description null.String `db:"description"`
		Scope       string      `db:"scope"`
		ScopeID     null.String `db:"scope_id"`
		Location    null.String `db:"location"`
		MeetingURL  null.String `db:"meeting_url"`
		StartsAt    time.Time   `db:"starts_at"`
		EndsAt      null.Time   `db:"ends_at"`
		CreatedBy   string      `db:"created_by"`
		CreatedAt   time.Time   `db:"created_at"`
		UpdatedAt   time.Time   `db:"updated_at"`
	}

	notificationRow struct {
		ID        string    `db:"id"`
		UserID    string    `db:"user_id"`
		EventID   string    `db:"event_id"`
		Title     string    `db:"title"`
		Body      string    `db:"body"`
		Read      bool      `db:"read"`
		CreatedAt time.Time `db:"created_at"`
	}
)

func (r eventRow) toDomain() event.Event {
	return event.Event{
		ID: r.ID, Title: r.Title, Description: r.Description, Scope: r.Scope,
		ScopeID: r.ScopeID, Location: r.Location, MeetingURL: r.MeetingURL,
		StartsAt: r.StartsAt, EndsAt: r.EndsAt, CreatedBy: r.CreatedBy,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func (r notificationRow) toDomain() event.Notification {
	return event.Notification{
		ID: r.ID, UserID: r.UserID, EventID: r.EventID, Title: r.Title,
		Body: r.Body, Read: r.Read, CreatedAt: r.CreatedAt,
	}
}

var (
	eventCols        = []string{"id", "title", "description", "scope", "scope_id", "location", "meeting_url", "starts_at", "ends_at", "created_by", "created_at", "updated_at"}
	notificationCols = []string{"id", "user_id", "event_id", "title", "body", "read", "created_at"}
)

type eventRepository struct {
	db *sqlx.DB
}

var _ event.Repository = (*eventRepository)(nil)

func NewEventRepository(db *sqlx.DB) *eventRepository {
	return &eventRepository{db: db}
}

func (repo eventRepository) CreateEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	query, args, err := psql.Insert("events").
		Columns("title", "description", "scope", "scope_id", "location", "meeting_url", "starts_at", "ends_at", "created_by", "created_at", "updated_at").
		Values(evt.Title, evt.Description, evt.Scope, evt.ScopeID, evt.Location, evt.MeetingURL, evt.StartsAt, evt.EndsAt, evt.CreatedBy, evt.CreatedAt, evt.UpdatedAt).
		Suffix("RETURNING " + sqlxColumns(eventCols)).
		ToSql()
	if err != nil {
		return event.Event{}, errors.Wrap(err, "building query")
	}

	var row eventRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		return event.Event{}, errors.Wrap(err, "creating event")
	}
	return row.toDomain(), nil
}

func (repo eventRepository) GetEvent(ctx context.Context, id string) (event.Event, error) {
	query, args, err := psql.Select(eventCols...).From("events").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return event.Event{}, errors.Wrap(err, "building query")
	}

	var row eventRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return event.Event{}, event.ErrNotFound
		}
		return event.Event{}, errors.Wrap(err, "getting event")
	}
	return row.toDomain(), nil
}

func (repo eventRepository) QueryEvents(ctx context.Context, filter event.EventFilter) ([]event.Event, error) {
	qb := psql.Select(eventCols...).From("events").OrderBy("starts_at")
	if filter.Scope != "" {
		qb = qb.Where(sq.Eq{"scope": filter.Scope})
	}
	if filter.ScopeID != "" {
		qb = qb.Where(sq.Eq{"scope_id": filter.ScopeID})
	}
	if !filter.From.IsZero() {
		qb = qb.Where(sq.GtOrEq{"starts_at": filter.From})
	}
	if !filter.Until.IsZero() {
		qb = qb.Where(sq.LtOrEq{"starts_at": filter.Until})
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	var rows []eventRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying events")
	}
	events := make([]event.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, row.toDomain())
	}
	return events, nil
}

func (repo eventRepository) QueryUserEvents(ctx context.Context, userID string, from time.Time) ([]event.Event, error) {
	// campus events + events scoped to the user's programs/courses
	query := `
		SELECT ` + sqlxColumns(eventCols) + ` FROM events
		WHERE starts_at >= $1 AND (
			scope = 'campus'
			OR (scope = 'program' AND scope_id IN (SELECT program_id FROM enrollments WHERE user_id = $2))
			OR (scope = 'course' AND scope_id IN (SELECT course_id FROM course_enrollments WHERE user_id = $2))
		)
		ORDER BY starts_at`

	var rows []eventRow
	if err := repo.db.SelectContext(ctx, &rows, query, from, userID); err != nil {
		return nil, errors.Wrap(err, "querying user events")
	}
	events := make([]event.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, row.toDomain())
	}
	return events, nil
}

func (repo eventRepository) UpdateEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	query, args, err := psql.Update("events").
		Set("title", evt.Title).
		Set("description", evt.Description).
		Set("location", evt.Location).
		Set("meeting_url", evt.MeetingURL).
		Set("starts_at", evt.StartsAt).
		Set("ends_at", evt.EndsAt).
		Set("updated_at", evt.UpdatedAt).
		Where(sq.Eq{"id": evt.ID}).
		Suffix("RETURNING " + sqlxColumns(eventCols)).
		ToSql()
	if err != nil {
		return event.Event{}, errors.Wrap(err, "building query")
	}

	var row eventRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return event.Event{}, event.ErrNotFound
		}
		return event.Event{}, errors.Wrap(err, "updating event")
	}
	return row.toDomain(), nil
}

func (repo eventRepository) DeleteEvent(ctx context.Context, id string) error {
	query, args, err := psql.Delete("events").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	_, err = repo.db.ExecContext(ctx, query, args...)
	return errors.Wrap(err, "deleting event")
}

func (repo eventRepository) AudienceUserIDs(ctx context.Context, scope, scopeID string) ([]string, error) {
	var (
		query string
		args  []interface{}
	)
	switch scope {
	case event.ScopeCampus:
		query = `SELECT id FROM users WHERE is_active`
	case event.ScopeProgram:
		query = `SELECT user_id FROM enrollments WHERE program_id = $1`
		args = append(args, scopeID)
	case event.ScopeCourse:
		query = `SELECT user_id FROM course_enrollments WHERE course_id = $1`
		args = append(args, scopeID)
	default:
		return nil, errors.Errorf("unknown scope %q", scope)
	}

	var ids []string
	if err := repo.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, errors.Wrap(err, "resolving audience")
	}
	return ids, nil
}

func (repo eventRepository) CreateNotifications(ctx context.Context, notifs []event.Notification) error {
	if len(notifs) == 0 {
		return nil
	}
	qb := psql.Insert("event_notifications").
		Columns("user_id", "event_id", "title", "body", "read", "created_at")
	for _, n := range notifs {
		qb = qb.Values(n.UserID, n.EventID, n.Title, n.Body, n.Read, n.CreatedAt)
	}
	query, args, err := qb.
		Suffix("ON CONFLICT (user_id, event_id) DO NOTHING").
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	_, err = repo.db.ExecContext(ctx, query, args...)
	return errors.Wrap(err, "creating notifications")
}

func (repo eventRepository) QueryNotifications(ctx context.Context, userID string, unreadOnly bool) ([]event.Notification, error) {
	qb := psql.Select(notificationCols...).From("event_notifications").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC")
	if unreadOnly {
		qb = qb.Where(sq.Eq{"read": false})
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	var rows []notificationRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	notifs := make([]event.Notification, 0, len(rows))
	for _, row := range rows {
		notifs = append(notifs, row.toDomain())
	}
	return notifs, nil
}

func (repo eventRepository) CountUnreadNotifications(ctx context.Context, userID string) (int, error) {
	query, args, err := psql.Select("COUNT(*)").From("event_notifications").
		Where(sq.Eq{"user_id": userID, "read": false}).
		ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	var count int
	if err = repo.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, errors.Wrap(err, "counting unread notifications")
	}
	return count, nil
}

func (repo eventRepository) MarkNotificationsRead(ctx context.Context, userID string, ids ...string) error {
	qb := psql.Update("event_notifications").
		Set("read", true).
		Where(sq.Eq{"user_id": userID})
	if len(ids) > 0 {
		qb = qb.Where(sq.Eq{"id": ids})
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	_, err = repo.db.ExecContext(ctx, query, args...)
	return errors.Wrap(err, "marking notifications read")
}
