package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid configuration").
			WithSeverity(SeverityFatal).
			WithContext("file", "confexport.yaml").
			Build()

		if err.Category() != CategoryConfig {
			t.Errorf("expected category %s, got %s", CategoryConfig, err.Category())
		}
		if err.Severity() != SeverityFatal {
			t.Errorf("expected severity %s, got %s", SeverityFatal, err.Severity())
		}
		if err.Message() != "invalid configuration" {
			t.Errorf("expected message 'invalid configuration', got %s", err.Message())
		}
		file, exists := err.Context().GetString("file")
		if !exists || file != "confexport.yaml" {
			t.Errorf("expected context file=confexport.yaml, got %v", file)
		}
	})

	t.Run("Detection through wrapping", func(t *testing.T) {
		base := DataShapeError("missing body").WithContext("page_id", "42").Build()
		wrapped := fmt.Errorf("walk child: %w", base)

		if !HasCategory(wrapped, CategoryDataShape) {
			t.Error("expected wrapped error to keep data_shape category")
		}
		if GetCategory(wrapped) != CategoryDataShape {
			t.Errorf("GetCategory() = %s", GetCategory(wrapped))
		}
		if GetCategory(stderrors.New("plain")) != CategoryInternal {
			t.Error("plain errors should map to internal")
		}
	})

	t.Run("WithContext copies", func(t *testing.T) {
		base := ConfigError("missing token").Build()
		derived := base.WithContext("key", "CONFLUENCE_TOKEN")
		if _, ok := base.Context().Get("key"); ok {
			t.Error("WithContext must not mutate the original error")
		}
		if v, _ := derived.Context().GetString("key"); v != "CONFLUENCE_TOKEN" {
			t.Errorf("derived context = %q", v)
		}
	})
}

func TestErrorBuilder(t *testing.T) {
	t.Run("Fluent API", func(t *testing.T) {
		originalErr := stderrors.New("connection refused")
		err := WrapError(originalErr, CategoryNetwork, "request failed").
			Warning().
			Retryable().
			WithContext("host", "confluence.example.com").
			Build()

		if err.Severity() != SeverityWarning {
			t.Errorf("expected severity %s, got %s", SeverityWarning, err.Severity())
		}
		if err.RetryStrategy() != RetryBackoff {
			t.Errorf("expected retry strategy %s, got %s", RetryBackoff, err.RetryStrategy())
		}
		if !stderrors.Is(err, originalErr) {
			t.Error("expected error to wrap original error")
		}
		if !IsRetryable(fmt.Errorf("outer: %w", err)) {
			t.Error("expected wrapped network error to be retryable")
		}
	})

	t.Run("Convenience constructors", func(t *testing.T) {
		tests := []struct {
			name     string
			builder  *ErrorBuilder
			category ErrorCategory
			retry    RetryStrategy
		}{
			{"ConfigError", ConfigError("test"), CategoryConfig, RetryNever},
			{"ValidationError", ValidationError("test"), CategoryValidation, RetryNever},
			{"AuthError", AuthError("test"), CategoryAuth, RetryUserAction},
			{"NotFoundError", NotFoundError("test"), CategoryNotFound, RetryNever},
			{"NetworkError", NetworkError("test"), CategoryNetwork, RetryBackoff},
			{"ContentAPIError", ContentAPIError("test"), CategoryContentAPI, RetryNever},
			{"DataShapeError", DataShapeError("test"), CategoryDataShape, RetryNever},
			{"FileSystemError", FileSystemError("test"), CategoryFileSystem, RetryNever},
			{"InternalError", InternalError("test"), CategoryInternal, RetryNever},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := tt.builder.Build()
				if err.Category() != tt.category {
					t.Errorf("expected category %s, got %s", tt.category, err.Category())
				}
				if !err.IsFatal() {
					t.Errorf("expected %s to be fatal", tt.name)
				}
				if err.RetryStrategy() != tt.retry {
					t.Errorf("expected retry strategy %s, got %s", tt.retry, err.RetryStrategy())
				}
			})
		}
	})
}
