package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestWrap_PreservesCode(t *testing.T) {
	base := PropensityFit("fit failed for %q", "age_index")
	wrapped := Wrap(base, "propensity stage failed")

	if GetCode(wrapped) != CodePropensityFit {
		t.Fatalf("code %s, want %s", GetCode(wrapped), CodePropensityFit)
	}
	if !stderrors.Is(wrapped, base) {
		t.Fatalf("wrapped error should unwrap to the original")
	}
}

func TestWrap_ForeignErrorGetsInternalCode(t *testing.T) {
	err := Wrap(fmt.Errorf("disk on fire"), "while estimating")
	if GetCode(err) != CodeInternalError {
		t.Fatalf("code %s, want %s", GetCode(err), CodeInternalError)
	}
	if err.Error() != "while estimating: disk on fire" {
		t.Fatalf("message %q", err.Error())
	}
}

func TestWithCode(t *testing.T) {
	err := WithCode(CodeBootstrap, fmt.Errorf("not enough replicates"))
	if GetCode(err) != CodeBootstrap {
		t.Fatalf("code %s", GetCode(err))
	}
	if WithCode(CodeBootstrap, nil) != nil {
		t.Fatalf("nil error should stay nil")
	}
	if Wrap(nil, "context") != nil {
		t.Fatalf("wrapping nil should stay nil")
	}
}

func TestGetCode_Unknown(t *testing.T) {
	if GetCode(fmt.Errorf("plain")) != "UNKNOWN" {
		t.Fatalf("plain errors have no code")
	}
	if !IsAppError(Trimming("window emptied an arm")) {
		t.Fatalf("constructor should build an AppError")
	}
	if IsAppError(fmt.Errorf("plain")) {
		t.Fatalf("plain error is not an AppError")
	}
}
