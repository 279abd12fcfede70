package ratelimit

import (
	"testing"
	"time"
)

func TestParseQuota(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Quota
		wantErr bool
	}{
		{name: "per second", input: "5/second", want: Quota{Limit: 5, Window: time.Second}},
		{name: "per minute", input: "60/minute", want: Quota{Limit: 60, Window: time.Minute}},
		{name: "per hour", input: "100/hour", want: Quota{Limit: 100, Window: time.Hour}},
		{name: "per day", input: "1000/day", want: Quota{Limit: 1000, Window: 24 * time.Hour}},
		{name: "unknown unit defaults to day", input: "7/fortnight", want: Quota{Limit: 7, Window: 24 * time.Hour}},
		{name: "missing slash", input: "60", wantErr: true},
		{name: "non-numeric count", input: "abc/minute", wantErr: true},
		{name: "zero count", input: "0/minute", wantErr: true},
		{name: "negative count", input: "-1/minute", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseQuota(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseQuota(%q) expected error, got %+v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseQuota(%q) unexpected error: %v", tt.input, err)
			}
			if got.Limit != tt.want.Limit || got.Window != tt.want.Window {
				t.Errorf("ParseQuota(%q) = {%d %v}, want {%d %v}",
					tt.input, got.Limit, got.Window, tt.want.Limit, tt.want.Window)
			}
			if got.String() != tt.input {
				t.Errorf("String() = %q, want raw input %q", got.String(), tt.input)
			}
		})
	}
}
