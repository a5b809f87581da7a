package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/jmoralo/newsbrief/internal/retry"
)

// Client wraps the Gmail API for label-scoped newsletter retrieval.
type Client struct {
	svc      *gmail.Service
	retryCfg retry.Config
}

// NewClient builds a Gmail client from an OAuth client secret file and a
// previously provisioned token file. The token must be obtained out of
// band; there is no interactive flow here.
func NewClient(ctx context.Context, credentialsPath, tokenPath string, scopes []string) (*Client, error) {
	secret, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	cfg, err := google.ConfigFromJSON(secret, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	token, err := loadToken(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}

	return &Client{
		svc: svc,
		retryCfg: retry.Config{
			MaxAttempts: 5,
			Delay:       2 * time.Second,
			Linear:      true,
			Jitter:      true,
		},
	}, nil
}

func loadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, err
	}
	return token, nil
}

// FetchMessages lists full messages under label received inside the
// [after, before) window. Zero times drop the corresponding bound.
func (c *Client) FetchMessages(ctx context.Context, label string, max int64, after, before time.Time) ([]*Message, error) {
	query := "label:" + label
	if !after.IsZero() {
		query += fmt.Sprintf(" after:%d", after.Unix())
	}
	if !before.IsZero() {
		query += fmt.Sprintf(" before:%d", before.Unix())
	}

	var listed *gmail.ListMessagesResponse
	err := retry.WithRetry(ctx, c.retryCfg, func() error {
		var err error
		listed, err = c.svc.Users.Messages.List("me").Q(query).MaxResults(max).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	messages := make([]*Message, 0, len(listed.Messages))
	for _, ref := range listed.Messages {
		var raw *gmail.Message
		err := retry.WithRetry(ctx, c.retryCfg, func() error {
			var err error
			raw, err = c.svc.Users.Messages.Get("me", ref.Id).Format("full").Context(ctx).Do()
			return err
		})
		if err != nil {
			slog.Warn("skipping unreadable message", "id", ref.Id, "error", err)
			continue
		}
		messages = append(messages, parseMessage(raw))
	}

	slog.Info("fetched newsletter messages", "label", label, "count", len(messages), "query", query)
	return messages, nil
}

// MarkAsRead removes the UNREAD label from the given messages in one
// batch call.
func (c *Client) MarkAsRead(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	req := &gmail.BatchModifyMessagesRequest{
		Ids:            ids,
		RemoveLabelIds: []string{"UNREAD"},
	}
	err := retry.WithRetry(ctx, c.retryCfg, func() error {
		return c.svc.Users.Messages.BatchModify("me", req).Context(ctx).Do()
	})
	if err != nil {
		return fmt.Errorf("mark as read: %w", err)
	}
	return nil
}
