package activity

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/jkazadi/kampus/core"
)

// DefaultInactiveDays is the inactivity window of the nudge mailer.
const DefaultInactiveDays = 30

type (
	// mailSender is the slice of core.EmailService the digests need.
	mailSender interface {
		SendMessages(messages ...*core.EmailMessage)
	}

	service struct {
		repo    Repository
		mailSvc mailSender
	}
)

var _ Service = (*service)(nil)

func (svc *service) SendWeeklySummary(ctx context.Context) (int, error) {
	report, err := svc.BuildReport(ctx)
	if err != nil {
		return 0, err
	}
	admins, err := svc.repo.QueryAdmins(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "querying admins")
	}
	if len(admins) == 0 {
		return 0, nil
	}

	to := make([]mail.Address, 0, len(admins))
	for _, adm := range admins {
		to = append(to, mail.Address{Name: adm.Name, Address: adm.Email})
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           to,
		Subject:      "Weekly Campus Summary",
		TemplateName: "weekly-summary",
		TemplateData: report,
	})
	return len(admins), nil
}

func (svc *service) SendInactivityNudges(ctx context.Context, inactiveDays int) (int, error) {
	if inactiveDays <= 0 {
		inactiveDays = DefaultInactiveDays
	}
	since := time.Now().UTC().AddDate(0, 0, -inactiveDays)
	students, err := svc.repo.QueryInactiveStudents(ctx, since)
	if err != nil {
		return 0, errors.Wrap(err, "querying inactive students")
	}

	messages := make([]*core.EmailMessage, 0, len(students))
	for _, std := range students {
		messages = append(messages, &core.EmailMessage{
			To:           []mail.Address{{Name: std.Name, Address: std.Email}},
			Subject:      "We Miss You!",
			TemplateName: "inactivity-nudge",
			TemplateData: struct {
				Name string
				Days int
			}{std.Name, inactiveDays},
		})
	}
	if len(messages) > 0 {
		svc.mailSvc.SendMessages(messages...)
	}
	return len(messages), nil
}
