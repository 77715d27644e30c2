package reminder

import (
	"errors"
	"testing"
	"time"
)

func TestHeartbeatSpec(t *testing.T) {
	tests := []struct {
		interval time.Duration
		want     string
		wantErr  bool
	}{
		{12 * time.Hour, "0 */12 * * *", false},
		{6 * time.Hour, "0 */6 * * *", false},
		{time.Hour, "0 */1 * * *", false},
		{24 * time.Hour, "0 0 * * *", false},
		{30 * time.Minute, "*/30 * * * *", false},
		{15 * time.Minute, "*/15 * * * *", false},
		{0, "", true},
		{-time.Hour, "", true},
		{5 * time.Hour, "", true},    // не делит сутки
		{90 * time.Minute, "", true}, // делит сутки, но не целые часы
		{7 * time.Minute, "", true},  // не делит час
		{30 * time.Second, "", true}, // не целые минуты
		{48 * time.Hour, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.interval.String(), func(t *testing.T) {
			got, err := HeartbeatSpec(tt.interval)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPolicy) {
					t.Errorf("expected ErrInvalidPolicy, got %q, %v", got, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
			if _, err := cronParser.Parse(got); err != nil {
				t.Errorf("spec %q does not parse: %v", got, err)
			}
		})
	}
}

func TestPolicy_Validate(t *testing.T) {
	if err := DefaultPolicy().Validate(); err != nil {
		t.Fatalf("default policy should be valid: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Policy)
	}{
		{"zero threshold", func(p *Policy) { p.Threshold = 0 }},
		{"zero snooze", func(p *Policy) { p.SnoozeDuration = 0 }},
		{"zero liveness", func(p *Policy) { p.LivenessInterval = 0 }},
		{"bad heartbeat", func(p *Policy) { p.HeartbeatInterval = 5 * time.Hour }},
		{"bad timezone", func(p *Policy) { p.Timezone = "Mars/Olympus" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPolicy()
			tt.mutate(&p)
			if err := p.Validate(); !errors.Is(err, ErrInvalidPolicy) {
				t.Errorf("expected ErrInvalidPolicy, got %v", err)
			}
		})
	}
}

func TestPolicy_HeartbeatIgnoredWhenDisabled(t *testing.T) {
	p := DefaultPolicy()
	p.Heartbeats = false
	p.HeartbeatInterval = 5 * time.Hour

	if err := p.Validate(); err != nil {
		t.Errorf("heartbeat interval should not matter when disabled: %v", err)
	}
}

func TestPolicy_Location(t *testing.T) {
	for _, tz := range []string{"", "Local"} {
		loc, err := Policy{Timezone: tz}.Location()
		if err != nil || loc != time.Local {
			t.Errorf("%q: expected time.Local, got %v, %v", tz, loc, err)
		}
	}

	loc, err := Policy{Timezone: "Europe/Moscow"}.Location()
	if err != nil || loc.String() != "Europe/Moscow" {
		t.Errorf("unexpected location %v, %v", loc, err)
	}
}

func TestLivenessSpec(t *testing.T) {
	if got := livenessSpec(6 * time.Hour); got != "@every 6h0m0s" {
		t.Errorf("unexpected spec %q", got)
	}
}
