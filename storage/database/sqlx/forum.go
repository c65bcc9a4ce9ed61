package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/jkazadi/kampus/core/forum"
)

type (
	postRow struct {
		ID             string         `db:"id"`
		AuthorID       string         `db:"author_id"`
		CourseID       null.String    `db:"course_id"`
		Title          string         `db:"title"`
		Body           string         `db:"body"`
		AttachmentURLs pq.StringArray `db:"attachment_urls"`
		CreatedAt      time.Time      `db:"created_at"`
	}

	replyRow struct {
		ID        string    `db:"id"`
		PostID    string    `db:"post_id"`
		AuthorID  string    `db:"author_id"`
		Body      string    `db:"body"`
		CreatedAt time.Time `db:"created_at"`
	}
)

func (r postRow) toDomain() forum.Post {
	return forum.Post{
		ID: r.ID, AuthorID: r.AuthorID, CourseID: r.CourseID, Title: r.Title,
		Body: r.Body, AttachmentURLs: r.AttachmentURLs, CreatedAt: r.CreatedAt,
	}
}

func (r replyRow) toDomain() forum.Reply {
	return forum.Reply{
		ID: r.ID, PostID: r.PostID, AuthorID: r.AuthorID, Body: r.Body, CreatedAt: r.CreatedAt,
	}
}

var (
	postCols  = []string{"id", "author_id", "course_id", "title", "body", "attachment_urls", "created_at"}
	replyCols = []string{"id", "post_id", "author_id", "body", "created_at"}
)

type forumRepository struct {
	db *sqlx.DB
}

var _ forum.Repository = (*forumRepository)(nil)

func NewForumRepository(db *sqlx.DB) *forumRepository {
	return &forumRepository{db: db}
}

func (repo forumRepository) CreatePost(ctx context.Context, p forum.Post) (forum.Post, error) {
	query, args, err := psql.Insert("forum_posts").
		Columns("author_id", "course_id", "title", "body", "attachment_urls", "created_at").
		Values(p.AuthorID, p.CourseID, p.Title, p.Body, pq.StringArray(p.AttachmentURLs), p.CreatedAt).
		Suffix("RETURNING " + sqlxColumns(postCols)).
		ToSql()
	if err != nil {
		return forum.Post{}, errors.Wrap(err, "building query")
	}

	var row postRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		return forum.Post{}, errors.Wrap(err, "creating post")
	}
	return row.toDomain(), nil
}

func (repo forumRepository) GetPost(ctx context.Context, id string) (forum.Post, error) {
	query, args, err := psql.Select(postCols...).From("forum_posts").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return forum.Post{}, errors.Wrap(err, "building query")
	}

	var row postRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return forum.Post{}, forum.ErrPostNotFound
		}
		return forum.Post{}, errors.Wrap(err, "getting post")
	}
	return row.toDomain(), nil
}

func (repo forumRepository) QueryPosts(ctx context.Context, filter forum.PostFilter) ([]forum.Post, error) {
	qb := psql.Select(postCols...).From("forum_posts").OrderBy("created_at DESC")
	if filter.CourseID != "" {
		qb = qb.Where(sq.Eq{"course_id": filter.CourseID})
	}
	if filter.AuthorID != "" {
		qb = qb.Where(sq.Eq{"author_id": filter.AuthorID})
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	var rows []postRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying posts")
	}
	posts := make([]forum.Post, 0, len(rows))
	for _, row := range rows {
		posts = append(posts, row.toDomain())
	}
	return posts, nil
}

func (repo forumRepository) DeletePost(ctx context.Context, id string) error {
	query, args, err := psql.Delete("forum_posts").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	_, err = repo.db.ExecContext(ctx, query, args...)
	return errors.Wrap(err, "deleting post")
}

func (repo forumRepository) CreateReply(ctx context.Context, r forum.Reply) (forum.Reply, error) {
	query, args, err := psql.Insert("forum_replies").
		Columns("post_id", "author_id", "body", "created_at").
		Values(r.PostID, r.AuthorID, r.Body, r.CreatedAt).
		Suffix("RETURNING " + sqlxColumns(replyCols)).
		ToSql()
	if err != nil {
		return forum.Reply{}, errors.Wrap(err, "building query")
	}

	var row replyRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		return forum.Reply{}, errors.Wrap(err, "creating reply")
	}
	return row.toDomain(), nil
}

func (repo forumRepository) GetReply(ctx context.Context, id string) (forum.Reply, error) {
	query, args, err := psql.Select(replyCols...).From("forum_replies").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return forum.Reply{}, errors.Wrap(err, "building query")
	}

	var row replyRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return forum.Reply{}, forum.ErrReplyNotFound
		}
		return forum.Reply{}, errors.Wrap(err, "getting reply")
	}
	return row.toDomain(), nil
}

func (repo forumRepository) QueryReplies(ctx context.Context, postID string) ([]forum.Reply, error) {
	query, args, err := psql.Select(replyCols...).From("forum_replies").
		Where(sq.Eq{"post_id": postID}).
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	var rows []replyRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying replies")
	}
	replies := make([]forum.Reply, 0, len(rows))
	for _, row := range rows {
		replies = append(replies, row.toDomain())
	}
	return replies, nil
}

func (repo forumRepository) DeleteReply(ctx context.Context, id string) error {
	query, args, err := psql.Delete("forum_replies").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	_, err = repo.db.ExecContext(ctx, query, args...)
	return errors.Wrap(err, "deleting reply")
}
