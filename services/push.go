package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/api/fcm/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// ErrInvalidToken means the push provider will never deliver to the token again.
var ErrInvalidToken = errors.New("push token is invalid or unregistered")

type PushMessage struct {
	Token    string
	Title    string
	Body     string
	Priority string // "high" or "normal"
	Data     map[string]string
}

type PushSender interface {
	Send(ctx context.Context, msg PushMessage) error
}

// FCMSender delivers through the Firebase Cloud Messaging HTTP v1 API.
type FCMSender struct {
	svc     *fcm.Service
	project string
}

func NewFCMSender(ctx context.Context, projectID, credentialsFile string) (*FCMSender, error) {
	if projectID == "" {
		return nil, fmt.Errorf("firebase project id is required")
	}
	opts := []option.ClientOption{}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	svc, err := fcm.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create fcm service: %w", err)
	}
	return &FCMSender{svc: svc, project: "projects/" + projectID}, nil
}

func (s *FCMSender) Send(ctx context.Context, msg PushMessage) error {
	req := &fcm.SendMessageRequest{
		Message: &fcm.Message{
			Token: msg.Token,
			Notification: &fcm.Notification{
				Title: msg.Title,
				Body:  msg.Body,
			},
			Data: msg.Data,
			Android: &fcm.AndroidConfig{
				Priority: strings.ToUpper(msg.Priority),
			},
			Webpush: &fcm.WebpushConfig{
				Headers: map[string]string{"Urgency": webpushUrgency(msg.Priority)},
			},
		},
	}
	_, err := s.svc.Projects.Messages.Send(s.project, req).Context(ctx).Do()
	return classifyFCMError(err)
}

func webpushUrgency(priority string) string {
	if priority == "high" {
		return "high"
	}
	return "normal"
}

// classifyFCMError maps token errors onto ErrInvalidToken.
func classifyFCMError(err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Code == http.StatusNotFound {
			return fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		for _, item := range gerr.Errors {
			if item.Reason == "UNREGISTERED" || item.Reason == "INVALID_ARGUMENT" {
				return fmt.Errorf("%w: %v", ErrInvalidToken, err)
			}
		}
		msg := gerr.Message + " " + gerr.Body
		if strings.Contains(msg, "UNREGISTERED") ||
			(gerr.Code == http.StatusBadRequest && strings.Contains(msg, "registration token")) {
			return fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	}
	return err
}

// LogSender only logs; it stands in for FCM when Firebase is disabled.
type LogSender struct {
	Logger zerolog.Logger
}

func (s LogSender) Send(_ context.Context, msg PushMessage) error {
	s.Logger.Info().
		Str("token_suffix", tokenSuffix(msg.Token)).
		Str("title", msg.Title).
		Str("priority", msg.Priority).
		Msg("📱 push notification (firebase disabled)")
	return nil
}

func tokenSuffix(token string) string {
	if len(token) <= 8 {
		return token
	}
	return "…" + token[len(token)-8:]
}
