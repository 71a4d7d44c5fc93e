package llm

import (
	"testing"

	"github.com/hrygo/deepsearch/ai/models"
)

func TestNewServiceRequiresRouter(t *testing.T) {
	_, err := NewService(&Config{Provider: "openai", APIKey: "k"}, nil)
	if err == nil {
		t.Fatal("expected error without router")
	}
}

func TestNewServiceProviders(t *testing.T) {
	router := models.NewRouter("search-model", "chat-model")

	providers := []string{"deepseek", "siliconflow", "zai", "dashscope", "openai", "openrouter", "ollama", "somebody-else"}
	for _, p := range providers {
		t.Run(p, func(t *testing.T) {
			svc, err := NewService(&Config{Provider: p, APIKey: "test-key"}, router)
			if err != nil {
				t.Fatalf("NewService(%s) error: %v", p, err)
			}
			if svc == nil {
				t.Fatalf("NewService(%s) returned nil service", p)
			}
		})
	}
}

func TestExtractCitations(t *testing.T) {
	text := "Quantum chips advanced in 2025 [IBM Research](https://ibm.com/quantum) " +
		"while error correction improved [Nature](https://nature.com/articles/qc-2025)."

	citations := ExtractCitations(text)
	if len(citations) != 2 {
		t.Fatalf("got %d citations, want 2", len(citations))
	}

	first := citations[0]
	if first.Title != "IBM Research" {
		t.Errorf("title = %q", first.Title)
	}
	if first.URL != "https://ibm.com/quantum" {
		t.Errorf("url = %q", first.URL)
	}
	if got := text[first.SpanStart:first.SpanEnd]; got != "[IBM Research](https://ibm.com/quantum)" {
		t.Errorf("span text = %q", got)
	}
}

func TestExtractCitationsNoLinks(t *testing.T) {
	if got := ExtractCitations("plain prose, no sources"); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}

func TestUniqueURLs(t *testing.T) {
	citations := []Citation{
		{URL: "https://a.example"},
		{URL: "https://b.example"},
		{URL: "https://a.example"},
	}
	urls := uniqueURLs(citations)
	if len(urls) != 2 {
		t.Fatalf("got %d urls, want 2", len(urls))
	}
	if urls[0] != "https://a.example" || urls[1] != "https://b.example" {
		t.Errorf("urls = %v, order not preserved", urls)
	}
}
