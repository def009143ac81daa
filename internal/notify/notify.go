// Package notify tells operators how a pipeline run ended.
package notify

import (
	"fmt"
	"time"

	"github.com/hochfrequenz/arp-orchestrator/internal/domain"
	"github.com/hochfrequenz/arp-orchestrator/internal/settings"
)

// NotificationType represents the type of notification
type NotificationType int

const (
	NotifyInfo NotificationType = iota
	NotifySuccess
	NotifyWarning
	NotifyError
)

// Notification represents a notification to be sent
type Notification struct {
	Title   string
	Message string
	Type    NotificationType

	RunID    string
	Stage    string // failing stage, if any
	ExitCode int
	Flags    string
	At       time.Time
}

// Notifier is the interface for sending notifications
type Notifier interface {
	Send(n Notification) error
}

// MultiNotifier sends to multiple notifiers
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a notifier that sends to all provided notifiers
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

// Send sends the notification to all notifiers
func (m *MultiNotifier) Send(n Notification) error {
	var lastErr error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(n); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// NoopNotifier does nothing (for testing or disabled notifications)
type NoopNotifier struct{}

func (NoopNotifier) Send(n Notification) error { return nil }

// FromSettings builds the notifiers enabled in cfg
func FromSettings(cfg settings.NotificationsConfig) Notifier {
	var ns []Notifier
	if cfg.SlackWebhook != "" {
		ns = append(ns, NewSlackNotifier(cfg.SlackWebhook))
	}
	if cfg.Desktop {
		ns = append(ns, NewDesktopNotifier())
	}
	if len(ns) == 0 {
		return NoopNotifier{}
	}
	return NewMultiNotifier(ns...)
}

// ForRun describes how run ended. failed is the failing stage, if any.
func ForRun(run domain.Run, failed *domain.StageResult) Notification {
	n := Notification{RunID: run.ID, ExitCode: run.ExitCode, Flags: run.Flags}
	if run.FinishedAt != nil {
		n.At = *run.FinishedAt
	}
	switch run.Status {
	case domain.RunCompleted:
		n.Type = NotifySuccess
		n.Title = "App Reporting Pack run completed"
		n.Message = "All stages succeeded"
	case domain.RunAborted:
		n.Type = NotifyWarning
		n.Title = "App Reporting Pack run aborted"
		n.Message = "The run was aborted before any stage ran"
	default:
		n.Type = NotifyError
		n.Title = "App Reporting Pack run failed"
		n.Message = fmt.Sprintf("Run exited with code %d", run.ExitCode)
		if failed != nil {
			n.Stage = failed.Stage
			n.Message = fmt.Sprintf("Stage %s failed with exit code %d", failed.Stage, failed.ExitCode)
		}
	}
	if run.Flags != "" {
		n.Message += " (" + run.Flags + ")"
	}
	return n
}
