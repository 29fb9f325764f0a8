package validation

import (
	"testing"

	"github.com/region23/bookingbot/internal/storage/models"
	"github.com/region23/bookingbot/pkg/errors"
)

func TestValidateUID(t *testing.T) {
	tests := []struct {
		uid     string
		wantErr bool
	}{
		{"aBc123-_x", false},
		{"", true},
		{"with space", true},
		{"../etc", true},
	}
	for _, tt := range tests {
		err := ValidateUID(tt.uid)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateUID(%q) error = %v, wantErr %v", tt.uid, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, errors.ErrInvalidPayload) {
			t.Errorf("ValidateUID(%q) returned %v, want ErrInvalidPayload", tt.uid, err)
		}
	}
}

func TestValidateBookingEvent(t *testing.T) {
	var ev models.BookingEvent
	ev.TriggerEvent = "SOMETHING_NEW"
	ev.Payload.UID = "u1"
	if err := ValidateBookingEvent(ev); err != nil {
		t.Errorf("unknown trigger must pass validation: %v", err)
	}

	ev.TriggerEvent = ""
	if err := ValidateBookingEvent(ev); err == nil {
		t.Error("empty trigger must fail")
	}

	ev.TriggerEvent = models.TriggerBookingCreated
	ev.Payload.UID = ""
	if err := ValidateBookingEvent(ev); err == nil {
		t.Error("empty uid must fail")
	}
}

func TestValidateReminderWindow(t *testing.T) {
	tests := []struct {
		from, to int
		wantErr  bool
	}{
		{23, 24, false},
		{0, 1, false},
		{24, 23, true},
		{5, 5, true},
		{-1, 2, true},
		{0, 24*14 + 1, true},
	}
	for _, tt := range tests {
		if err := ValidateReminderWindow(tt.from, tt.to); (err != nil) != tt.wantErr {
			t.Errorf("ValidateReminderWindow(%d, %d) error = %v, wantErr %v", tt.from, tt.to, err, tt.wantErr)
		}
	}
}

func TestValidateMailEvent(t *testing.T) {
	var ev models.MailWebhookEvent
	if err := ValidateMailEvent(ev); err == nil {
		t.Error("zero message id must fail")
	}
	ev.Payload.Message.ID = 7
	if err := ValidateMailEvent(ev); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
