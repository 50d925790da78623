package authgate

import (
	"context"
	"errors"
	"testing"
)

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
		err  bool
	}{
		{in: "Alice@Example.com", want: "alice@example.com"},
		{in: "  bob@example.com\t", want: "bob@example.com"},
		{in: "", err: true},
		{in: "no-at-sign", err: true},
		{in: "Alice <alice@example.com>", err: true},
	}
	for _, tt := range tests {
		got, err := normalizeEmail(tt.in)
		if tt.err {
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("%q: expected ErrInvalidInput, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("%q: got %q %v, want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
		err  bool
	}{
		{in: "+15550100000", want: "+15550100000"},
		{in: "+1 (555) 010-0000", want: "+15550100000"},
		{in: "+44.20.7946.0958", want: "+442079460958"},
		{in: "15550100000", err: true},
		{in: "+05550100000", err: true},
		{in: "+1234567890123456", err: true},
	}
	for _, tt := range tests {
		got, err := normalizePhone(tt.in)
		if tt.err {
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("%q: expected ErrInvalidInput, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("%q: got %q %v, want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestClientMetadataContext(t *testing.T) {
	ctx := WithUserAgent(WithClientIP(context.Background(), "198.51.100.1"), "curl/8")
	if ClientIPFromContext(ctx) != "198.51.100.1" || userAgentFromContext(ctx) != "curl/8" {
		t.Fatal("client metadata not carried")
	}
	if ClientIPFromContext(context.Background()) != "" {
		t.Fatal("expected empty ip on bare context")
	}
}
