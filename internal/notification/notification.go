// Package notification delivers directory change events to Slack and webhooks.
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/userdesk/backend/internal/config"
	"github.com/userdesk/backend/internal/correlation"
)

// Channel represents a notification delivery channel.
type Channel string

const (
	ChannelSlack   Channel = "slack"
	ChannelWebhook Channel = "webhook"
)

// EventType represents the type of notification event.
type EventType string

const (
	EventUserCreated       EventType = "user.created"
	EventUserUpdated       EventType = "user.updated"
	EventUserDeleted       EventType = "user.deleted"
	EventUserStatusChanged EventType = "user.status_changed"
)

// Message represents a notification message.
type Message struct {
	EventType EventType      `json:"event_type"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Severity  string         `json:"severity,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Service manages notification delivery across channels.
type Service struct {
	cfg        config.NotificationConfig
	webhooks   []string
	httpClient *http.Client
	logger     *slog.Logger
	channels   []Channel
}

// NewService creates a new notification service.
func NewService(cfg config.NotificationConfig, logger *slog.Logger) *Service {
	s := &Service{
		cfg:      cfg,
		webhooks: cfg.WebhookList(),
		httpClient: &http.Client{
			Timeout:   10 * time.Second,
			Transport: &correlation.Transport{},
		},
		logger: logger,
	}

	if cfg.SlackWebhookURL != "" {
		s.channels = append(s.channels, ChannelSlack)
	}
	if len(s.webhooks) > 0 {
		s.channels = append(s.channels, ChannelWebhook)
	}

	return s
}

// Enabled reports whether any channel is configured.
func (s *Service) Enabled() bool {
	return len(s.channels) > 0
}

// Send sends a notification to all configured channels.
func (s *Service) Send(ctx context.Context, msg Message) error {
	msg.Timestamp = time.Now().UTC()
	var errs []string

	for _, ch := range s.channels {
		var err error
		switch ch {
		case ChannelSlack:
			err = s.sendSlack(ctx, msg)
		case ChannelWebhook:
			err = s.sendWebhook(ctx, msg)
		}
		if err != nil {
			s.logger.Error("notification send failed", "channel", ch, "event", msg.EventType, "error", err)
			errs = append(errs, fmt.Sprintf("%s: %v", ch, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// HasChannel returns true if the specified channel is configured.
func (s *Service) HasChannel(ch Channel) bool {
	for _, c := range s.channels {
		if c == ch {
			return true
		}
	}
	return false
}

func (s *Service) sendSlack(ctx context.Context, msg Message) error {
	color := "#2196F3" // blue
	switch msg.Severity {
	case "high":
		color = "#FF9800"
	case "medium":
		color = "#FFC107"
	}

	payload := map[string]any{
		"attachments": []map[string]any{
			{
				"color":  color,
				"title":  msg.Title,
				"text":   msg.Body,
				"footer": "UserDesk",
				"ts":     msg.Timestamp.Unix(),
				"fields": buildSlackFields(msg.Data),
			},
		},
	}

	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.SlackWebhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("slack request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned status %d", resp.StatusCode)
	}

	s.logger.Info("slack notification sent", "event", msg.EventType)
	return nil
}

func (s *Service) sendWebhook(ctx context.Context, msg Message) error {
	body, _ := json.Marshal(msg)

	var errs []string
	for _, webhookURL := range s.webhooks {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-UserDesk-Event", string(msg.EventType))

		resp, err := s.httpClient.Do(req)
		if err != nil {
			errs = append(errs, fmt.Sprintf("webhook %s: %v", webhookURL, err))
			continue
		}
		resp.Body.Close()

		if resp.StatusCode >= 300 {
			errs = append(errs, fmt.Sprintf("webhook %s: status %d", webhookURL, resp.StatusCode))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("webhook errors: %s", strings.Join(errs, "; "))
	}

	s.logger.Info("webhook notifications sent", "event", msg.EventType, "count", len(s.webhooks))
	return nil
}

func buildSlackFields(data map[string]any) []map[string]any {
	var fields []map[string]any
	for k, v := range data {
		fields = append(fields, map[string]any{
			"title": k,
			"value": fmt.Sprintf("%v", v),
			"short": true,
		})
	}
	return fields
}
