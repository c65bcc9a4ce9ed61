package forum_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"

	"github.com/jkazadi/kampus/core/forum"
	inmemdb "github.com/jkazadi/kampus/storage/database/inmem"
)

func setup(t *testing.T) forum.Service {
	t.Helper()
	return forum.NewService(inmemdb.NewForumRepository(inmemdb.NewDB()))
}

func Test_service_Posts(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()
	const author = "0d132b8c-9a20-4f62-a62f-0ef88eac24c3"
	const stranger = "a03d5dd0-90b1-4a5f-a221-06bd60bf9131"

	post, err := svc.CreatePost(ctx, author, forum.NewPost{
		Title:          "Stuck on flexbox",
		Body:           "How do I center a div?",
		AttachmentURLs: []string{"https://files.test.cd/screenshot.png"},
	})
	if err != nil {
		t.Fatalf("CreatePost() failed: %v", err)
	}
	if post.ID == "" || post.AuthorID != author {
		t.Fatalf("CreatePost() = %+v", post)
	}

	t.Run("detail includes replies oldest first", func(t *testing.T) {
		for _, body := range []string{"margin: auto", "use flex + justify-content"} {
			if _, err := svc.CreateReply(ctx, post.ID, stranger, forum.NewReply{Body: body}); err != nil {
				t.Fatalf("CreateReply() failed: %v", err)
			}
		}
		detail, err := svc.GetPostDetail(ctx, post.ID)
		if err != nil {
			t.Fatalf("GetPostDetail() failed: %v", err)
		}
		if len(detail.Replies) != 2 {
			t.Fatalf("Replies len = %d, want 2", len(detail.Replies))
		}
		if detail.Replies[0].Body != "margin: auto" {
			t.Errorf("first reply = %q, want the oldest one", detail.Replies[0].Body)
		}
	})

	t.Run("only the author can delete", func(t *testing.T) {
		if err := svc.DeletePost(ctx, post.ID, stranger, false); errors.Cause(err) != forum.ErrNotAuthor {
			t.Errorf("DeletePost() error = %v, want %v", err, forum.ErrNotAuthor)
		}
	})

	t.Run("admin can delete any post", func(t *testing.T) {
		if err := svc.DeletePost(ctx, post.ID, stranger, true); err != nil {
			t.Fatalf("DeletePost() failed: %v", err)
		}
		if _, err := svc.GetPostDetail(ctx, post.ID); errors.Cause(err) != forum.ErrPostNotFound {
			t.Errorf("GetPostDetail() error = %v, want %v", err, forum.ErrPostNotFound)
		}
	})

	t.Run("reply to a deleted post", func(t *testing.T) {
		if _, err := svc.CreateReply(ctx, post.ID, author, forum.NewReply{Body: "hello?"}); errors.Cause(err) != forum.ErrPostNotFound {
			t.Errorf("CreateReply() error = %v, want %v", err, forum.ErrPostNotFound)
		}
	})
}

func Test_service_QueryPosts_filter(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()
	const author = "0d132b8c-9a20-4f62-a62f-0ef88eac24c3"
	const courseID = "9c7e024b-6deb-4a4a-a7ed-4b5ae44ba75a"

	if _, err := svc.CreatePost(ctx, author, forum.NewPost{Title: "general", Body: "hi"}); err != nil {
		t.Fatalf("CreatePost() failed: %v", err)
	}
	if _, err := svc.CreatePost(ctx, author, forum.NewPost{Title: "course question", Body: "hi", CourseID: courseID}); err != nil {
		t.Fatalf("CreatePost() failed: %v", err)
	}

	posts, err := svc.QueryPosts(ctx, forum.PostFilter{CourseID: courseID})
	if err != nil {
		t.Fatalf("QueryPosts() failed: %v", err)
	}
	if len(posts) != 1 || posts[0].Title != "course question" {
		t.Errorf("QueryPosts() = %+v, want the course post only", posts)
	}

	posts, err = svc.QueryPosts(ctx, forum.PostFilter{})
	if err != nil {
		t.Fatalf("QueryPosts() failed: %v", err)
	}
	if len(posts) != 2 {
		t.Errorf("QueryPosts() len = %d, want 2", len(posts))
	}
}

func Test_service_DeleteReply(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()
	const author = "0d132b8c-9a20-4f62-a62f-0ef88eac24c3"
	const replier = "a03d5dd0-90b1-4a5f-a221-06bd60bf9131"

	post, err := svc.CreatePost(ctx, author, forum.NewPost{Title: "t", Body: "b"})
	if err != nil {
		t.Fatalf("CreatePost() failed: %v", err)
	}
	reply, err := svc.CreateReply(ctx, post.ID, replier, forum.NewReply{Body: "r"})
	if err != nil {
		t.Fatalf("CreateReply() failed: %v", err)
	}

	if err := svc.DeleteReply(ctx, reply.ID, author, false); errors.Cause(err) != forum.ErrNotAuthor {
		t.Errorf("DeleteReply() error = %v, want %v", err, forum.ErrNotAuthor)
	}
	if err := svc.DeleteReply(ctx, reply.ID, replier, false); err != nil {
		t.Fatalf("DeleteReply() failed: %v", err)
	}
	detail, err := svc.GetPostDetail(ctx, post.ID)
	if err != nil {
		t.Fatalf("GetPostDetail() failed: %v", err)
	}
	if len(detail.Replies) != 0 {
		t.Errorf("Replies len = %d, want 0", len(detail.Replies))
	}
}
