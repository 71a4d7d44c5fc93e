package llm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/sashabaranov/go-openai"
)

func TestClassifyQuotaByStatusCode(t *testing.T) {
	err := &openai.APIError{HTTPStatusCode: 429, Message: "you shall not pass"}
	classified := Classify(err)
	if classified.Class != ErrClassQuota {
		t.Errorf("class = %s, want quota", classified.Class)
	}
	if !classified.IsQuota() {
		t.Error("IsQuota() = false")
	}
}

func TestClassifyByMessagePattern(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrClass
	}{
		{"quota keyword", errors.New("provider quota exceeded for model"), ErrClassQuota},
		{"resource exhausted", errors.New("RESOURCE_EXHAUSTED: out of tokens"), ErrClassQuota},
		{"rate limit", errors.New("rate limit reached, slow down"), ErrClassQuota},
		{"status 429", errors.New("unexpected status code: 429"), ErrClassQuota},
		{"connection refused", errors.New("dial tcp 10.0.0.1:443: connection refused"), ErrClassTransient},
		{"timeout", errors.New("context deadline exceeded"), ErrClassTransient},
		{"invalid request", errors.New("invalid model name"), ErrClassInvalid},
		{"unauthorized", errors.New("unauthorized: bad api key"), ErrClassInvalid},
		{"mystery", errors.New("something odd happened"), ErrClassUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if got.Class != tt.want {
				t.Errorf("Classify(%v).Class = %s, want %s", tt.err, got.Class, tt.want)
			}
		})
	}
}

func TestClassifyServerErrorIsTransient(t *testing.T) {
	err := &openai.APIError{HTTPStatusCode: 503, Message: "overloaded"}
	if got := Classify(err).Class; got != ErrClassTransient {
		t.Errorf("class = %s, want transient", got)
	}
}

func TestClassifyIdempotent(t *testing.T) {
	inner := Classify(errors.New("quota exceeded"))
	wrapped := fmt.Errorf("search step: %w", inner)

	outer := Classify(wrapped)
	if outer.Class != ErrClassQuota {
		t.Errorf("reclassified class = %s, want quota", outer.Class)
	}
}

func TestClassifyUnwrap(t *testing.T) {
	base := errors.New("boom")
	classified := Classify(fmt.Errorf("wrapped: %w", base))
	if !errors.Is(classified, base) {
		t.Error("classified error does not unwrap to original")
	}
}

func TestIsQuotaExhausted(t *testing.T) {
	if IsQuotaExhausted(nil) {
		t.Error("nil error reported as quota")
	}
	if !IsQuotaExhausted(errors.New("429 too many requests")) {
		t.Error("429 error not reported as quota")
	}
	if IsQuotaExhausted(errors.New("invalid input")) {
		t.Error("invalid error reported as quota")
	}
}
