package forum

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
)

var (
	// errors
	ErrPostNotFound  = errors.New("post not found")
	ErrReplyNotFound = errors.New("reply not found")
	ErrNotAuthor     = errors.New("not the author")
)

type (
	Repository interface {
		CreatePost(ctx context.Context, p Post) (Post, error)
		GetPost(ctx context.Context, id string) (Post, error)
		// QueryPosts returns posts newest first.
		QueryPosts(ctx context.Context, filter PostFilter) ([]Post, error)
		DeletePost(ctx context.Context, id string) error

		CreateReply(ctx context.Context, r Reply) (Reply, error)
		GetReply(ctx context.Context, id string) (Reply, error)
		// QueryReplies returns a post's replies oldest first.
		QueryReplies(ctx context.Context, postID string) ([]Reply, error)
		DeleteReply(ctx context.Context, id string) error
	}

	Service interface {
		CreatePost(ctx context.Context, authorID string, np NewPost) (Post, error)
		GetPostDetail(ctx context.Context, id string) (PostDetail, error)
		QueryPosts(ctx context.Context, filter PostFilter) ([]Post, error)
		// DeletePost removes the author's own post; asAdmin bypasses the
		// ownership check.
		DeletePost(ctx context.Context, id, requesterID string, asAdmin bool) error

		CreateReply(ctx context.Context, postID, authorID string, nr NewReply) (Reply, error)
		DeleteReply(ctx context.Context, id, requesterID string, asAdmin bool) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) CreatePost(ctx context.Context, authorID string, np NewPost) (Post, error) {
	return svc.repo.CreatePost(ctx, Post{
		AuthorID:       authorID,
		CourseID:       null.NewString(np.CourseID, np.CourseID != ""),
		Title:          np.Title,
		Body:           np.Body,
		AttachmentURLs: np.AttachmentURLs,
		CreatedAt:      time.Now().UTC(),
	})
}

func (svc *service) GetPostDetail(ctx context.Context, id string) (PostDetail, error) {
	p, err := svc.repo.GetPost(ctx, id)
	if err != nil {
		return PostDetail{}, err
	}
	replies, err := svc.repo.QueryReplies(ctx, p.ID)
	if err != nil {
		return PostDetail{}, errors.Wrap(err, "querying replies")
	}
	return PostDetail{Post: p, Replies: replies}, nil
}

func (svc *service) QueryPosts(ctx context.Context, filter PostFilter) ([]Post, error) {
	return svc.repo.QueryPosts(ctx, filter)
}

func (svc *service) DeletePost(ctx context.Context, id, requesterID string, asAdmin bool) error {
	p, err := svc.repo.GetPost(ctx, id)
	if err != nil {
		return err
	}
	if !asAdmin && p.AuthorID != requesterID {
		return ErrNotAuthor
	}
	return svc.repo.DeletePost(ctx, id)
}

func (svc *service) CreateReply(ctx context.Context, postID, authorID string, nr NewReply) (Reply, error) {
	if _, err := svc.repo.GetPost(ctx, postID); err != nil {
		return Reply{}, err
	}
	return svc.repo.CreateReply(ctx, Reply{
		PostID:    postID,
		AuthorID:  authorID,
		Body:      nr.Body,
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *service) DeleteReply(ctx context.Context, id, requesterID string, asAdmin bool) error {
	r, err := svc.repo.GetReply(ctx, id)
	if err != nil {
		return err
	}
	if !asAdmin && r.AuthorID != requesterID {
		return ErrNotAuthor
	}
	return svc.repo.DeleteReply(ctx, id)
}
