package appointment

import (
	"errors"
	"testing"
	"time"

	"eventservices/internal/status"
	"eventservices/internal/validate"
)

func TestParseSchedule(t *testing.T) {
	s, err := ParseSchedule("", "")
	if err != nil || s != nil {
		t.Fatalf("expected no schedule, got %+v %v", s, err)
	}
	var ve validate.ValidationError
	if _, err := ParseSchedule("2025-11-07", ""); !errors.As(err, &ve) || ve.Code != "SCHEDULE_INCOMPLETE" {
		t.Fatalf("expected SCHEDULE_INCOMPLETE, got %v", err)
	}
	s, err = ParseSchedule("2025-11-07", "18:30")
	if err != nil || s.Hour != "18:30" || s.Date.Day() != 7 {
		t.Fatalf("unexpected schedule %+v %v", s, err)
	}
}

func TestTransition_ConfirmRequiresSchedule(t *testing.T) {
	now := time.Now()
	a := &Appointment{Status: status.AppointmentPending}

	var ve validate.ValidationError
	if err := transition(a, status.AppointmentConfirmed, nil, now); !errors.As(err, &ve) || ve.Code != "SCHEDULE_REQUIRED" {
		t.Fatalf("expected SCHEDULE_REQUIRED, got %v", err)
	}
	if a.Status != status.AppointmentPending {
		t.Fatalf("status must not change on failure")
	}

	sched, _ := ParseSchedule("2025-11-07", "10:00")
	if err := transition(a, status.AppointmentConfirmed, sched, now); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if a.Status != status.AppointmentConfirmed || a.Hour != "10:00" {
		t.Fatalf("unexpected appointment %+v", a)
	}

	// re-confirm reschedules
	sched, _ = ParseSchedule("2025-11-08", "12:00")
	if err := transition(a, status.AppointmentConfirmed, sched, now); err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if a.Date.Day() != 8 || a.Hour != "12:00" {
		t.Fatalf("expected rescheduled appointment, got %+v", a)
	}
}

func TestTransition_RejectsInvalid(t *testing.T) {
	a := &Appointment{Status: status.AppointmentCancelled}
	var ite *status.InvalidTransitionError
	if err := transition(a, status.AppointmentConfirmed, nil, time.Now()); !errors.As(err, &ite) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
}
