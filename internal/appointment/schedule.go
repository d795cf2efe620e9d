package appointment

import (
	"time"

	"eventservices/internal/status"
	"eventservices/internal/validate"
)

// Schedule is a validated date + hour pair.
type Schedule struct {
	Date time.Time
	Hour string
}

func ParseSchedule(date, hour string) (*Schedule, error) {
	if date == "" && hour == "" {
		return nil, nil
	}
	if date == "" || hour == "" {
		return nil, validate.ValidationError{Code: "SCHEDULE_INCOMPLETE", Field: "date", Message: "date and hour must be given together"}
	}
	d, err := validate.Date("date", date)
	if err != nil {
		return nil, err
	}
	h, err := validate.Hour("hour", hour)
	if err != nil {
		return nil, err
	}
	return &Schedule{Date: d, Hour: h}, nil
}

// transition validates next for a and applies it. Confirming needs a schedule,
// either given now or already on the appointment.
func transition(a *Appointment, next status.Status, sched *Schedule, now time.Time) error {
	if err := status.Validate(status.EntityAppointment, a.Status, next); err != nil {
		return err
	}
	if next == status.AppointmentConfirmed {
		if sched == nil && (a.Date == nil || a.Hour == "") {
			return validate.ValidationError{Code: "SCHEDULE_REQUIRED", Field: "date", Message: "confirmation requires a date and hour"}
		}
	}
	if sched != nil {
		d := sched.Date
		a.Date = &d
		a.Hour = sched.Hour
	}
	a.Status = next
	a.Touch(now)
	return nil
}
