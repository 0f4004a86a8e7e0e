package errors

import (
	"errors"
	"testing"
)

func TestDomainError(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		err := New(CodeUnsupportedLanguage, "no grammar for this file")
		if err.Error() != "[UNSUPPORTED_LANGUAGE] no grammar for this file" {
			t.Errorf("unexpected message: %s", err.Error())
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		original := errors.New("git show failed")
		err := Wrap(original, CodeDiffUnavailable, "revision unavailable")
		expected := "[DIFF_UNAVAILABLE] revision unavailable: git show failed"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
	})

	t.Run("IsCode", func(t *testing.T) {
		err := New(CodeMalformedSource, "parse produced no tree")
		if !IsCode(err, CodeMalformedSource) {
			t.Error("expected IsCode to match CodeMalformedSource")
		}
		if IsCode(err, CodeNotFound) {
			t.Error("expected IsCode to reject CodeNotFound")
		}
	})

	t.Run("IsCodeWithWrapped", func(t *testing.T) {
		original := errors.New("no candidate matched")
		err := Wrap(original, CodeResolutionFailure, "cannot resolve dependency")
		if !IsCode(err, CodeResolutionFailure) {
			t.Error("expected IsCode to match through the wrapper")
		}
	})

	t.Run("WithContext", func(t *testing.T) {
		err := New(CodeNotFound, "cannot read source file").
			WithContext(CtxPath, "src/server.py")
		if err.Context[CtxPath] != "src/server.py" {
			t.Errorf("expected path context, got %v", err.Context)
		}
	})

	t.Run("AddContextToForeignError", func(t *testing.T) {
		err := AddContext(errors.New("boom"), CtxOperation, "shape.extract")
		var de *DomainError
		if !errors.As(err, &de) {
			t.Fatal("expected a DomainError wrapper")
		}
		if de.Code != CodeInternal {
			t.Errorf("expected CodeInternal, got %s", de.Code)
		}
		if de.Context[CtxOperation] != "shape.extract" {
			t.Errorf("expected operation context, got %v", de.Context)
		}
	})
}
