package enroll

import (
	"context"
	"net/mail"
	"path"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/jkazadi/kampus/core/catalog"
)

// Assignment files land in a shared drop folder named
// "<lesson_slug>__<submitter_email><ext>"; the webhook feeds those names back
// so submissions can be attached to the right lesson and user.

type (
	DropEntry struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	}

	DropName struct {
		LessonSlug string
		Email      string
	}

	IntakeResult struct {
		Processed int      `json:"processed"`
		Skipped   int      `json:"skipped"`
		Errors    []string `json:"errors,omitempty"`
	}
)

// dropExtensions are the upload types seen in the drop folder. Only these are
// stripped from a drop name: an email TLD must survive an extension-less
// "<slug>__<email>".
var dropExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".odt":  true,
	".txt":  true,
	".md":   true,
	".zip":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

// ParseDropName splits a drop-folder file name into its lesson slug and
// submitter email. A known upload extension is stripped first.
func ParseDropName(name string) (DropName, error) {
	base := path.Base(name)
	if ext := path.Ext(base); dropExtensions[strings.ToLower(ext)] {
		base = strings.TrimSuffix(base, ext)
	}

	parts := strings.SplitN(base, "__", 2)
	if len(parts) != 2 {
		return DropName{}, errors.Errorf("missing separator in %q", name)
	}
	slug := strings.TrimSpace(parts[0])
	if slug == "" {
		return DropName{}, errors.Errorf("empty lesson slug in %q", name)
	}

	addr, err := mail.ParseAddress(strings.TrimSpace(parts[1]))
	if err != nil {
		return DropName{}, errors.Wrapf(err, "invalid email in %q", name)
	}
	return DropName{LessonSlug: slug, Email: strings.ToLower(addr.Address)}, nil
}

// ProcessDropEntries attaches each drop-folder file to the matching user's
// assignment. Malformed names, unknown lessons and unknown users are counted
// and skipped, never fatal.
func (svc *service) ProcessDropEntries(ctx context.Context, entries []DropEntry) (IntakeResult, error) {
	var res IntakeResult
	skip := func(reason string) {
		res.Skipped++
		res.Errors = append(res.Errors, reason)
	}

	for _, entry := range entries {
		dn, err := ParseDropName(entry.Name)
		if err != nil {
			skip(err.Error())
			continue
		}
		lesson, err := svc.catRepo.GetLesson(ctx, catalog.GetFilter{Slug: dn.LessonSlug})
		if err != nil {
			if errors.Cause(err) == catalog.ErrLessonNotFound {
				skip("unknown lesson " + dn.LessonSlug)
				continue
			}
			return res, err
		}
		userID, err := svc.usrRepo.GetUserIDByEmail(ctx, dn.Email)
		if err != nil {
			skip("unknown user " + dn.Email)
			continue
		}

		now := time.Now().UTC()
		a := Assignment{
			UserID:    userID,
			LessonID:  lesson.ID,
			Status:    AssignmentSubmitted,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if entry.URL != "" {
			a.FileURL.SetValid(entry.URL)
		}
		if _, err = svc.repo.UpsertAssignment(ctx, a); err != nil {
			return res, errors.Wrapf(err, "upserting assignment for %s", entry.Name)
		}
		res.Processed++
	}
	return res, nil
}
