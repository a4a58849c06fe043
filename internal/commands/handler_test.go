package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type testMessage struct{}

func (testMessage) Type() string { return "blog.test.message" }

func (testMessage) Validate() error { return nil }

type invalidMessage struct{}

func (invalidMessage) Type() string { return "blog.test.invalid" }

func (invalidMessage) Validate() error {
	return errors.New("invalid")
}

func TestHandlerExecuteSuccess(t *testing.T) {
	called := false
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		called = true
		return nil
	})

	if err := h.Execute(context.Background(), testMessage{}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !called {
		t.Fatal("expected handler to be invoked")
	}
}

func TestHandlerValidationShortCircuitsExecution(t *testing.T) {
	called := false
	h := NewHandler[invalidMessage](func(ctx context.Context, msg invalidMessage) error {
		called = true
		return nil
	})

	err := h.Execute(context.Background(), invalidMessage{})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryValidation) {
		t.Fatalf("expected validation category, got %v", err)
	}
	if called {
		t.Fatal("expected handler not to run when validation fails")
	}
}

func TestHandlerContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		called = true
		return nil
	})

	err := h.Execute(ctx, testMessage{})
	if err == nil {
		t.Fatal("expected context cancellation error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category, got %v", err)
	}
	if called {
		t.Fatal("expected handler not to run when context is cancelled")
	}
}

func TestHandlerWrapsExecutionError(t *testing.T) {
	execErr := errors.New("boom")
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		return execErr
	})

	err := h.Execute(context.Background(), testMessage{})
	if err == nil {
		t.Fatal("expected wrapped execution error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category, got %v", err)
	}
	if !errors.Is(err, execErr) {
		t.Fatalf("expected original error preserved, got %v", err)
	}
}

func TestHandlerErrorTextCodes(t *testing.T) {
	textCode := func(t *testing.T, err error) string {
		t.Helper()
		var gerr *goerrors.Error
		if !errors.As(err, &gerr) {
			t.Fatalf("expected wrapped error, got %v", err)
		}
		return gerr.TextCode
	}

	h := NewHandler[invalidMessage](func(ctx context.Context, msg invalidMessage) error {
		return nil
	})
	err := h.Execute(context.Background(), invalidMessage{})
	if code := textCode(t, err); code != CodeValidationFailed {
		t.Fatalf("expected %s, got %s", CodeValidationFailed, code)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	hc := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		return nil
	})
	err = hc.Execute(ctx, testMessage{})
	if code := textCode(t, err); code != CodeContextCanceled {
		t.Fatalf("expected %s, got %s", CodeContextCanceled, code)
	}

	he := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		return errors.New("boom")
	})
	err = he.Execute(context.Background(), testMessage{})
	if code := textCode(t, err); code != CodeExecutionFailed {
		t.Fatalf("expected %s, got %s", CodeExecutionFailed, code)
	}
}

func TestHandlerHonoursTimeoutOption(t *testing.T) {
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(20 * time.Millisecond):
			return nil
		}
	}, WithTimeout[testMessage](10*time.Millisecond))

	err := h.Execute(context.Background(), testMessage{})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category for timeout, got %v", err)
	}
}

func TestHandlerInvokesTelemetry(t *testing.T) {
	var captured TelemetryInfo
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		return nil
	},
		WithOperation[testMessage]("test.op"),
		WithMessageFields(func(testMessage) map[string]any {
			return map[string]any{"extra": true}
		}),
		WithTelemetry[testMessage](func(_ context.Context, _ testMessage, info TelemetryInfo) {
			captured = info
		}),
	)

	if err := h.Execute(context.Background(), testMessage{}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if captured.Status != TelemetryStatusSuccess {
		t.Fatalf("expected success status, got %q", captured.Status)
	}
	if captured.Command != "blog.test.message" {
		t.Fatalf("unexpected command name %q", captured.Command)
	}
	if captured.Operation != "test.op" {
		t.Fatalf("unexpected operation %q", captured.Operation)
	}
	if captured.Fields["extra"] != true {
		t.Fatalf("expected message fields in telemetry, got %v", captured.Fields)
	}
}

func TestHandlerTelemetryReportsFailure(t *testing.T) {
	var captured TelemetryInfo
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		return errors.New("boom")
	}, WithTelemetry[testMessage](func(_ context.Context, _ testMessage, info TelemetryInfo) {
		captured = info
	}))

	if err := h.Execute(context.Background(), testMessage{}); err == nil {
		t.Fatal("expected execution error")
	}
	if captured.Status != TelemetryStatusFailed {
		t.Fatalf("expected failed status, got %q", captured.Status)
	}
	if captured.Error == nil {
		t.Fatal("expected telemetry error to be set")
	}
}
