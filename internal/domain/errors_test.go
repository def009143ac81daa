package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"invalid argument", InvalidArgument(errors.New("unknown flag: --x")), 1},
		{"config not found", ConfigNotFound(errors.New("missing.yaml")), 1},
		{"config invalid", ConfigInvalid(errors.New("bad account")), 1},
		{"abort", InteractiveAbort(), 1},
		{"stage failed", StageFailed("generate_snapshots", 3, nil), 3},
		{"wrapped stage failure", fmt.Errorf("run: %w", StageFailed("fetch_reports", 42, nil)), 42},
		{"plain error", errors.New("boom"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestError_IsMatchesKind(t *testing.T) {
	err := fmt.Errorf("resolving: %w", ConfigNotFound(errors.New("no such file")))

	if !errors.Is(err, ErrConfigNotFound) {
		t.Error("expected errors.Is to match ErrConfigNotFound")
	}
	if errors.Is(err, ErrConfigInvalid) {
		t.Error("ConfigNotFound must not match ErrConfigInvalid")
	}
}

func TestError_UnwrapKeepsCause(t *testing.T) {
	cause := errors.New("permission denied")
	err := ConfigNotFound(cause)

	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable through Unwrap")
	}
}

func TestError_Message(t *testing.T) {
	err := StageFailed("generate_views", 2, nil)
	want := `stage "generate_views" failed with exit code 2`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	if got := InteractiveAbort().Error(); got != "aborted" {
		t.Errorf("InteractiveAbort().Error() = %q, want aborted", got)
	}
}
