package forum

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/jkazadi/kampus/core"
)

type Post struct {
	ID             string      `json:"id"`
	AuthorID       string      `json:"author_id"`
	CourseID       null.String `json:"course_id"`
	Title          string      `json:"title"`
	Body           string      `json:"body"`
	AttachmentURLs []string    `json:"attachment_urls"`
	CreatedAt      time.Time   `json:"created_at"` // UTC
}

type Reply struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// PostDetail is a post with its replies, oldest first.
type PostDetail struct {
	Post
	Replies []Reply `json:"replies"`
}

// Inputs

type NewPost struct {
	CourseID       string   `json:"course_id" validate:"omitempty,uuid4"`
	Title          string   `json:"title" validate:"required,max=200"`
	Body           string   `json:"body" validate:"required"`
	AttachmentURLs []string `json:"attachment_urls" validate:"omitempty,dive,url"`
}

func (np *NewPost) Validate(validate *validator.Validate) error {
	np.Title = core.CleanString(np.Title)
	np.Body = core.CleanString(np.Body)
	return validate.Struct(np)
}

type NewReply struct {
	Body string `json:"body" validate:"required"`
}

func (nr *NewReply) Validate(validate *validator.Validate) error {
	nr.Body = core.CleanString(nr.Body)
	return validate.Struct(nr)
}

// PostFilter narrows post queries; zero value means all posts.
type PostFilter struct {
	CourseID string
	AuthorID string
}
