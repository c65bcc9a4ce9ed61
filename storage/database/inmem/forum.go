package inmemdb

import (
	"context"
	"sort"

	"github.com/jkazadi/kampus/core/forum"
)

type forumRepository struct {
	db *DB
}

func NewForumRepository(db *DB) *forumRepository {
	return &forumRepository{db: db}
}

func (repo *forumRepository) CreatePost(ctx context.Context, p forum.Post) (forum.Post, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	p.ID = newID()
	repo.db.posts[p.ID] = &p
	return p, nil
}

func (repo *forumRepository) GetPost(ctx context.Context, id string) (forum.Post, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if p, ok := repo.db.posts[id]; ok {
		return *p, nil
	}
	return forum.Post{}, forum.ErrPostNotFound
}

func (repo *forumRepository) QueryPosts(ctx context.Context, filter forum.PostFilter) ([]forum.Post, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	posts := make([]forum.Post, 0)
	for _, p := range repo.db.posts {
		if filter.CourseID != "" && p.CourseID.String != filter.CourseID {
			continue
		}
		if filter.AuthorID != "" && p.AuthorID != filter.AuthorID {
			continue
		}
		posts = append(posts, *p)
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].CreatedAt.After(posts[j].CreatedAt) })
	return posts, nil
}

func (repo *forumRepository) DeletePost(ctx context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	delete(repo.db.posts, id)
	for rid, r := range repo.db.replies {
		if r.PostID == id {
			delete(repo.db.replies, rid)
		}
	}
	return nil
}

func (repo *forumRepository) CreateReply(ctx context.Context, r forum.Reply) (forum.Reply, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	r.ID = newID()
	repo.db.replies[r.ID] = &r
	return r, nil
}

func (repo *forumRepository) GetReply(ctx context.Context, id string) (forum.Reply, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if r, ok := repo.db.replies[id]; ok {
		return *r, nil
	}
	return forum.Reply{}, forum.ErrReplyNotFound
}

func (repo *forumRepository) QueryReplies(ctx context.Context, postID string) ([]forum.Reply, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	replies := make([]forum.Reply, 0)
	for _, r := range repo.db.replies {
		if r.PostID == postID {
			replies = append(replies, *r)
		}
	}
	sort.Slice(replies, func(i, j int) bool { return replies[i].CreatedAt.Before(replies[j].CreatedAt) })
	return replies, nil
}

func (repo *forumRepository) DeleteReply(ctx context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	delete(repo.db.replies, id)
	return nil
}
