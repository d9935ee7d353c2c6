package domain

import (
	"errors"
	"testing"
)

func TestParseUnitStateFromString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    UnitState
		wantErr bool
	}{
		{name: "exact", input: "SENT", want: StateSent},
		{name: "lowercase", input: "delivered", want: StateDelivered},
		{name: "whitespace", input: "  pending ", want: StatePending},
		{name: "invalid", input: "QUEUED", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseUnitStateFromString(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseUnitStateFromString(%q) expected error, got %v", tt.input, got)
				}
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("error = %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseUnitStateFromString(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Fatalf("ParseUnitStateFromString(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestUnitStateIsTerminal(t *testing.T) {
	t.Parallel()

	terminal := []UnitState{StateSent, StateDelivered, StateFailed}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s.IsTerminal() = false, want true", s)
		}
	}

	open := []UnitState{StatePending, StateSending}
	for _, s := range open {
		if s.IsTerminal() {
			t.Errorf("%s.IsTerminal() = true, want false", s)
		}
	}
}

func TestParseFailureReasonFromString(t *testing.T) {
	t.Parallel()

	if got := ParseFailureReasonFromString("no_service"); got != ReasonNoService {
		t.Fatalf("ParseFailureReasonFromString(no_service) = %v, want %v", got, ReasonNoService)
	}
	if got := ParseFailureReasonFromString("something else"); got != ReasonUnknown {
		t.Fatalf("unrecognized reason = %v, want %v", got, ReasonUnknown)
	}
}

func TestDispatchUnitValidate(t *testing.T) {
	t.Parallel()

	valid := DispatchUnit{
		ID:          "u1",
		BatchID:     "b1",
		Destination: "+15551234567",
		Body:        "hello",
		PartIndex:   0,
		PartCount:   1,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(u *DispatchUnit)
	}{
		{name: "missing id", mutate: func(u *DispatchUnit) { u.ID = "" }},
		{name: "missing destination", mutate: func(u *DispatchUnit) { u.Destination = " " }},
		{name: "missing body", mutate: func(u *DispatchUnit) { u.Body = "" }},
		{name: "zero part count", mutate: func(u *DispatchUnit) { u.PartCount = 0 }},
		{name: "part index out of range", mutate: func(u *DispatchUnit) { u.PartIndex = 1 }},
		{name: "negative part index", mutate: func(u *DispatchUnit) { u.PartIndex = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			u := valid
			tt.mutate(&u)
			err := u.Validate()
			if err == nil {
				t.Fatal("Validate() expected error")
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestRecipientDisplayAndFirstName(t *testing.T) {
	t.Parallel()

	r := Recipient{Name: "Ann Smith", Nickname: "Annie"}
	if got := r.DisplayName(); got != "Annie" {
		t.Fatalf("DisplayName() = %q, want Annie", got)
	}
	if got := r.FirstName(); got != "Ann" {
		t.Fatalf("FirstName() = %q, want Ann", got)
	}

	r = Recipient{Name: "Bo"}
	if got := r.DisplayName(); got != "Bo" {
		t.Fatalf("DisplayName() without nickname = %q, want Bo", got)
	}
	if got := r.FirstName(); got != "Bo" {
		t.Fatalf("FirstName() single token = %q, want Bo", got)
	}
}

func TestBatchCountsSettled(t *testing.T) {
	t.Parallel()

	c := BatchCounts{Sent: 2, Delivered: 1, Failed: 1}
	if !c.Settled() {
		t.Fatal("all terminal counts should be settled")
	}
	if got := c.SentOrBetter(); got != 3 {
		t.Fatalf("SentOrBetter() = %d, want 3", got)
	}

	c = BatchCounts{Sent: 2, Sending: 1}
	if c.Settled() {
		t.Fatal("counts with a SENDING unit must not be settled")
	}

	c = BatchCounts{}
	if c.Settled() {
		t.Fatal("empty counts must not report settled")
	}
}
