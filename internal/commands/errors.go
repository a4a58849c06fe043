package commands

import (
	"context"
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes attached to wrapped command errors so log pipelines can
// distinguish blog command failures from other subsystems.
const (
	CodeValidationFailed = "BLOG_COMMAND_VALIDATION_FAILED"
	CodeContextCanceled  = "BLOG_COMMAND_CONTEXT_CANCELED"
	CodeContextTimeout   = "BLOG_COMMAND_CONTEXT_TIMEOUT"
	CodeContextError     = "BLOG_COMMAND_CONTEXT_ERROR"
	CodeExecutionFailed  = "BLOG_COMMAND_EXECUTION_FAILED"
)

func wrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	if goerrors.IsWrapped(err) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryValidation, "blog command validation failed").
		WithTextCode(CodeValidationFailed)
}

func wrapContextError(err error) error {
	if err == nil {
		return nil
	}
	if goerrors.IsWrapped(err) {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled):
		return goerrors.Wrap(err, goerrors.CategoryCommand, "blog command cancelled").
			WithTextCode(CodeContextCanceled)
	case errors.Is(err, context.DeadlineExceeded):
		return goerrors.Wrap(err, goerrors.CategoryCommand, "blog command deadline exceeded").
			WithTextCode(CodeContextTimeout)
	default:
		return goerrors.Wrap(err, goerrors.CategoryCommand, "blog command context error").
			WithTextCode(CodeContextError)
	}
}

func wrapExecuteError(err error) error {
	if err == nil {
		return nil
	}
	if goerrors.IsWrapped(err) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryCommand, "blog command execution failed").
		WithTextCode(CodeExecutionFailed)
}
