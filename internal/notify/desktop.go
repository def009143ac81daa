package notify

import (
	"context"
	"os/exec"
	"runtime"
	"strconv"
	"time"
)

const desktopTimeout = 5 * time.Second

// DesktopNotifier shows a local notification through osascript on macOS or
// notify-send on Linux. Other platforms are silently skipped.
type DesktopNotifier struct {
	goos string
	run  func(ctx context.Context, name string, args ...string) error
}

// NewDesktopNotifier creates a notifier for the current platform
func NewDesktopNotifier() *DesktopNotifier {
	return &DesktopNotifier{
		goos: runtime.GOOS,
		run: func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		},
	}
}

// Send shows n, giving up after a few seconds
func (d *DesktopNotifier) Send(n Notification) error {
	name, args, ok := desktopCommand(d.goos, n)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), desktopTimeout)
	defer cancel()
	return d.run(ctx, name, args...)
}

// desktopCommand returns the command line that displays n on goos
func desktopCommand(goos string, n Notification) (string, []string, bool) {
	switch goos {
	case "darwin":
		script := "display notification " + strconv.Quote(n.Message) + " with title " + strconv.Quote(n.Title)
		if n.Stage != "" {
			script += " subtitle " + strconv.Quote(n.Stage)
		}
		return "osascript", []string{"-e", script}, true
	case "linux":
		args := []string{"--app-name", "arp-orch", "--icon", IconForType(n.Type)}
		if n.Type == NotifyError {
			args = append(args, "--urgency", "critical")
		}
		return "notify-send", append(args, n.Title, n.Message), true
	default:
		return "", nil, false
	}
}

// IconForType returns the freedesktop icon name for t
func IconForType(t NotificationType) string {
	switch t {
	case NotifySuccess:
		return "dialog-positive"
	case NotifyWarning:
		return "dialog-warning"
	case NotifyError:
		return "dialog-error"
	default:
		return "dialog-information"
	}
}
