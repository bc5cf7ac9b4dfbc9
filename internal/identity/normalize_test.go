package identity

import (
	"errors"
	"testing"

	"github.com/nextlevelbuilder/formrelay/internal/store"
)

func TestNormalizeTrigger(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"simple prefix", "N:Text", "n:text", false},
		{"trims and collapses", "  Big   Name:  text  ", "big name: text", false},
		{"pattern", "{Text}", "{text}", false},
		{"missing token", "hello", "", true},
		{"token not whole word", "context:stuff", "", true},
		{"empty", "", "", true},
		{"whitespace only", "   ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeTrigger(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("NormalizeTrigger(%q) expected error, got %q", tt.raw, got)
				}
				if !errors.Is(err, ErrInvalidTrigger) {
					t.Errorf("error = %v, want ErrInvalidTrigger", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeTrigger(%q) unexpected error: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeTrigger(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeTrigger_Idempotent(t *testing.T) {
	for _, raw := range []string{"N:Text", "  {TEXT}  ", "my  form :  Text"} {
		once, err := NormalizeTrigger(raw)
		if err != nil {
			t.Fatalf("first normalize of %q: %v", raw, err)
		}
		twice, err := NormalizeTrigger(once)
		if err != nil {
			t.Fatalf("second normalize of %q: %v", once, err)
		}
		if once != twice {
			t.Errorf("normalize not idempotent: %q -> %q -> %q", raw, once, twice)
		}
	}
}

func TestClassifyTrigger(t *testing.T) {
	tests := []struct {
		norm string
		want store.AliasKind
	}{
		{"{text}", store.KindPattern},
		{"[text]", store.KindPattern},
		{"<text>", store.KindPattern},
		{"n:text", store.KindPrefix},
		{"text done", store.KindPrefix},
	}
	for _, tt := range tests {
		if got := ClassifyTrigger(tt.norm); got != tt.want {
			t.Errorf("ClassifyTrigger(%q) = %v, want %v", tt.norm, got, tt.want)
		}
	}
}
