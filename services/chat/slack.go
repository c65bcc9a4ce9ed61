package chatsvc

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/slack-go/slack"

	"github.com/jkazadi/kampus/core"
)

type (
	Message struct {
		User      string    `json:"user"`
		Text      string    `json:"text"`
		Timestamp time.Time `json:"timestamp"`
	}

	// Service relays the campus chat channel; the token stays server-side.
	Service interface {
		PostMessage(ctx context.Context, from, text string) error
		History(ctx context.Context, limit int) ([]Message, error)
	}

	slackService struct {
		client  *slack.Client
		channel string
	}
)

var _ Service = (*slackService)(nil)

func NewSlackService(conf *core.Config) Service {
	return &slackService{
		client:  slack.New(conf.Chat.Token),
		channel: conf.Chat.Channel,
	}
}

func (svc *slackService) PostMessage(ctx context.Context, from, text string) error {
	_, _, err := svc.client.PostMessageContext(ctx, svc.channel,
		slack.MsgOptionText(text, false),
		slack.MsgOptionUsername(from),
	)
	return errors.Wrap(err, "posting chat message")
}

func (svc *slackService) History(ctx context.Context, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	res, err := svc.client.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
		ChannelID: svc.channel,
		Limit:     limit,
	})
	if err != nil {
		return nil, errors.Wrap(err, "fetching chat history")
	}

	messages := make([]Message, 0, len(res.Messages))
	for _, m := range res.Messages {
		messages = append(messages, Message{
			User:      m.Username,
			Text:      m.Text,
			Timestamp: parseSlackTS(m.Timestamp),
		})
	}
	return messages, nil
}

// parseSlackTS converts a "1234567890.123456" slack timestamp.
func parseSlackTS(ts string) time.Time {
	secs, err := strconv.ParseFloat(ts, 64)
	if err != nil {
		return time.Time{}
	}
	sec := int64(secs)
	nsec := int64((secs - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec).UTC()
}
