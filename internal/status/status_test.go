package status

import (
	"errors"
	"testing"
)

var allEntities = []Entity{EntityEvent, EntityAppointment, EntityMaintenance, EntityResource, EntityPayment}

func TestValidate_MatchesWhitelist(t *testing.T) {
	for _, e := range allEntities {
		tbl := tables[e]
		for _, from := range Statuses(e) {
			for _, to := range Statuses(e) {
				want := tbl.allowed[from][to] || (from == to && tbl.idempotent[from])
				err := Validate(e, from, to)
				if want && err != nil {
					t.Fatalf("%s %s->%s: expected allowed, got %v", e, from, to, err)
				}
				if !want {
					var ite *InvalidTransitionError
					if !errors.As(err, &ite) {
						t.Fatalf("%s %s->%s: expected InvalidTransitionError, got %v", e, from, to, err)
					}
				}
			}
		}
	}
}

func TestValidate_ApprovedToRejectedEvent(t *testing.T) {
	from, err := Parse(EntityEvent, "APROBADO")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	to, err := Parse(EntityEvent, "RECHAZADO")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := Validate(EntityEvent, from, to); err == nil {
		t.Fatalf("expected APPROVED -> REJECTED to be rejected")
	}
}

func TestValidate_SameStateOnlyWhenIdempotent(t *testing.T) {
	if err := Validate(EntityAppointment, AppointmentConfirmed, AppointmentConfirmed); err != nil {
		t.Fatalf("expected re-confirm to be allowed: %v", err)
	}
	if err := Validate(EntityEvent, EventClientReview, EventClientReview); err == nil {
		t.Fatalf("expected no-op event transition to be rejected")
	}
}

func TestValidate_TerminalStates(t *testing.T) {
	for _, to := range Statuses(EntityMaintenance) {
		if Validate(EntityMaintenance, MaintenanceFinalized, to) == nil {
			t.Fatalf("FINALIZED must be terminal, allowed -> %s", to)
		}
	}
	for _, to := range Statuses(EntityEvent) {
		if Validate(EntityEvent, EventFinished, to) == nil {
			t.Fatalf("FINISHED must be terminal, allowed -> %s", to)
		}
	}
}

func TestParse_Aliases(t *testing.T) {
	cases := []struct {
		entity Entity
		in     string
		want   Status
	}{
		{EntityEvent, "finalizado", EventFinished},
		{EntityMaintenance, "FINALIZADO", MaintenanceFinalized},
		{EntityMaintenance, "en_proceso", MaintenanceInProgress},
		{EntityResource, "FUERA_DE_SERVICIO", ResourceOutOfService},
		{EntityAppointment, "CONFIRMADO", AppointmentConfirmed},
		{EntityPayment, " approved ", PaymentApproved},
	}
	for _, c := range cases {
		got, err := Parse(c.entity, c.in)
		if err != nil {
			t.Fatalf("parse %q: %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("parse %q: expected %s, got %s", c.in, c.want, got)
		}
	}

	if _, err := Parse(EntityResource, "CONFIRMED"); err == nil {
		t.Fatalf("expected CONFIRMED to be unknown for resources")
	}
	if _, err := Parse("quotation", "PENDING"); err == nil {
		t.Fatalf("expected unknown entity error")
	}
}
