package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestNew_RegisteredCode(t *testing.T) {
	err := New("W102")

	if err.Code != "W102" {
		t.Errorf("Code = %q, want W102", err.Code)
	}
	if err.Category != CategoryPrecondition {
		t.Errorf("Category = %q, want precondition", err.Category)
	}
	if err.Message == "" {
		t.Error("Message should not be empty")
	}
}

func TestNew_UnknownCode(t *testing.T) {
	err := New("W999")

	if err.Code != "W999" {
		t.Errorf("Code = %q, want W999", err.Code)
	}
	if err.Message != "Unknown error" {
		t.Errorf("Message = %q, want Unknown error", err.Message)
	}
}

func TestError_String(t *testing.T) {
	err := New("W300")
	s := err.Error()

	if !strings.HasPrefix(s, "W300: ") {
		t.Errorf("Error() = %q, want W300 prefix", s)
	}
}

func TestError_NoCode(t *testing.T) {
	err := Newf(CategoryCLI, "bad flag %q", "--frob")

	if err.Error() != `bad flag "--frob"` {
		t.Errorf("Error() = %q", err.Error())
	}
	if err.Category != CategoryCLI {
		t.Errorf("Category = %q", err.Category)
	}
}

func TestWrap_Unwrap(t *testing.T) {
	inner := stderrors.New("exit status 1")
	err := New("W200").Wrap(inner)

	if !stderrors.Is(err, inner) {
		t.Error("errors.Is should find the wrapped error")
	}
	if err.Unwrap() != inner {
		t.Error("Unwrap should return the wrapped error")
	}
}

func TestFluentChaining(t *testing.T) {
	err := New("W400").
		WithDetail("step 2/2 failed").
		WithSuggestion("check the daemon logs").
		Wrap(stderrors.New("boom"))

	if err.Detail != "step 2/2 failed" {
		t.Errorf("Detail = %q", err.Detail)
	}
	if err.Suggestion != "check the daemon logs" {
		t.Errorf("Suggestion = %q", err.Suggestion)
	}
	if err.Wrapped == nil {
		t.Error("Wrapped should be set")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "W200") != nil {
		t.Error("FromError(nil) should be nil")
	}

	inner := stderrors.New("plain")
	wrapped := FromError(inner, "W200")
	if wrapped.Code != "W200" {
		t.Errorf("Code = %q", wrapped.Code)
	}

	// Already a PipelineError: pass through unchanged.
	pe := New("W300")
	if FromError(pe, "W200") != pe {
		t.Error("FromError should return an existing PipelineError as-is")
	}
}

func TestFormat_ContainsParts(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New("W102").
		WithDetail("looked in /proj/helper").
		WithSuggestion("commit package-lock.json")
	out := err.Format()

	for _, want := range []string{"W102", "Lock file missing", "looked in /proj/helper", "hint:", "precondition"} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q in:\n%s", want, out)
		}
	}
}

func TestRegistry_Lookup(t *testing.T) {
	tmpl, ok := GetTemplate("W100")
	if !ok {
		t.Fatal("W100 should be registered")
	}
	if tmpl.Category != CategoryPrecondition {
		t.Errorf("Category = %q", tmpl.Category)
	}

	if _, ok := GetTemplate("nope"); ok {
		t.Error("unregistered code should not be found")
	}
}

func TestRegistry_AllCodesHaveCategory(t *testing.T) {
	for _, code := range GetAllCodes() {
		tmpl, _ := GetTemplate(code)
		if tmpl.Category == "" {
			t.Errorf("code %s has no category", code)
		}
		if tmpl.Message == "" {
			t.Errorf("code %s has no message", code)
		}
	}
}
