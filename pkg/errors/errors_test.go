package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestNew(t *testing.T) {
	t.Parallel()

	err := New(CodeNoResponses, "no participant produced a response")
	if err.Code != CodeNoResponses {
		t.Errorf("code = %q", err.Code)
	}
	if err.Message != "no participant produced a response" {
		t.Errorf("message = %q", err.Message)
	}
	if err.HTTPStatus != http.StatusBadGateway {
		t.Errorf("http status = %d", err.HTTPStatus)
	}
	if err.Err != nil {
		t.Errorf("cause = %v, want nil", err.Err)
	}
}

func TestWrap(t *testing.T) {
	t.Parallel()

	cause := fmt.Errorf("connection refused")
	err := Wrap(cause, CodeProviderError, "provider call failed")
	if err.Err != cause {
		t.Errorf("cause = %v", err.Err)
	}
	if err.Unwrap() != cause {
		t.Errorf("unwrap = %v", err.Unwrap())
	}
	if err.HTTPStatus != http.StatusBadGateway {
		t.Errorf("http status = %d", err.HTTPStatus)
	}
}

func TestErrorFormat(t *testing.T) {
	t.Parallel()

	plain := New(CodeNoResponses, "no participant produced a response")
	if got := plain.Error(); got != "[4002] no participant produced a response" {
		t.Errorf("Error() = %q", got)
	}

	wrapped := Wrap(fmt.Errorf("connection refused"), CodeProviderError, "provider call failed")
	if got := wrapped.Error(); got != "[5001] provider call failed: connection refused" {
		t.Errorf("Error() = %q", got)
	}
}

func TestWithDetailAndError(t *testing.T) {
	t.Parallel()

	cause := fmt.Errorf("status 401")
	err := New(CodeProviderAuthError, "provider rejected credentials").
		WithDetail("openai/gpt-4o: auth_error").
		WithError(cause)
	if err.Detail != "openai/gpt-4o: auth_error" {
		t.Errorf("detail = %q", err.Detail)
	}
	if err.Err != cause {
		t.Errorf("cause = %v", err.Err)
	}
}

func TestCodeToHTTPStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code ErrorCode
		want int
	}{
		{CodeSuccess, http.StatusOK},
		{CodeInvalidParam, http.StatusBadRequest},
		{CodeAttachmentInvalid, http.StatusBadRequest},
		{CodeNotFound, http.StatusNotFound},
		{CodeTooManyRequests, http.StatusTooManyRequests},
		{CodeServiceUnavailable, http.StatusServiceUnavailable},
		{CodeConsensusFailed, http.StatusBadGateway},
		{CodeNoResponses, http.StatusBadGateway},
		{CodeChairmanFailed, http.StatusBadGateway},
		{CodeModelListFailed, http.StatusBadGateway},
		{CodeProviderError, http.StatusBadGateway},
		{CodeProviderAuthError, http.StatusBadGateway},
		{CodeProviderRateLimited, http.StatusTooManyRequests},
		{CodeProviderTimeout, http.StatusGatewayTimeout},
		{CodeUnknown, http.StatusInternalServerError},
		{CodeInternalError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			t.Parallel()
			if got := codeToHTTPStatus(tt.code); got != tt.want {
				t.Errorf("codeToHTTPStatus(%q) = %d, want %d", tt.code, got, tt.want)
			}
		})
	}
}

func TestIsAppError(t *testing.T) {
	t.Parallel()

	if !IsAppError(New(CodeInternalError, "boom")) {
		t.Error("AppError not recognized")
	}
	if IsAppError(fmt.Errorf("boom")) {
		t.Error("plain error recognized as AppError")
	}
}

func TestAsAppError(t *testing.T) {
	t.Parallel()

	app := New(CodeChairmanFailed, "chairman synthesis failed")
	if got := AsAppError(app); got != app {
		t.Errorf("got %v, want same instance", got)
	}

	plain := fmt.Errorf("boom")
	wrapped := AsAppError(plain)
	if wrapped.Code != CodeUnknown {
		t.Errorf("code = %q", wrapped.Code)
	}
	if wrapped.Message != "unknown error" {
		t.Errorf("message = %q", wrapped.Message)
	}
	if wrapped.Err != plain {
		t.Errorf("cause = %v", wrapped.Err)
	}
	if wrapped.HTTPStatus != http.StatusInternalServerError {
		t.Errorf("http status = %d", wrapped.HTTPStatus)
	}
}
