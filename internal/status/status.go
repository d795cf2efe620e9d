package status

import (
	"fmt"
	"strings"
)

type Entity string

const (
	EntityEvent       Entity = "event"
	EntityAppointment Entity = "appointment"
	EntityMaintenance Entity = "maintenance"
	EntityResource    Entity = "resource"
	EntityPayment     Entity = "payment"
)

type Status string

// Event
const (
	EventPendingConfig        Status = "PENDING_CONFIG"
	EventAwaitingRegistration Status = "AWAITING_REGISTRATION"
	EventClientReview         Status = "CLIENT_REVIEW"
	EventApproved             Status = "APPROVED"
	EventPaymentsAssigned     Status = "PAYMENTS_ASSIGNED"
	EventRejected             Status = "REJECTED"
	EventFollowUp             Status = "FOLLOW_UP"
	EventFinished             Status = "FINISHED"
)

// Appointment
const (
	AppointmentPending   Status = "PENDING"
	AppointmentConfirmed Status = "CONFIRMED"
	AppointmentCompleted Status = "COMPLETED"
	AppointmentCancelled Status = "CANCELLED"
)

// Maintenance
const (
	MaintenancePending    Status = "PENDING"
	MaintenanceInProgress Status = "IN_PROGRESS"
	MaintenanceFinalized  Status = "FINALIZED"
)

// Resource
const (
	ResourceAvailable    Status = "AVAILABLE"
	ResourceMaintenance  Status = "MAINTENANCE"
	ResourceOutOfService Status = "OUT_OF_SERVICE"
)

// Payment
const (
	PaymentPending  Status = "PENDING"
	PaymentApproved Status = "APPROVED"
	PaymentRejected Status = "REJECTED"
)

type table struct {
	allowed    map[Status]map[Status]bool
	idempotent map[Status]bool
}

var tables = map[Entity]table{
	EntityEvent: {
		allowed: map[Status]map[Status]bool{
			EventPendingConfig:        {EventAwaitingRegistration: true, EventRejected: true},
			EventAwaitingRegistration: {EventClientReview: true, EventRejected: true},
			EventClientReview:         {EventApproved: true, EventRejected: true, EventFollowUp: true},
			EventFollowUp:             {EventClientReview: true, EventRejected: true},
			EventRejected:             {EventFollowUp: true},
			EventApproved:             {EventPaymentsAssigned: true},
			EventPaymentsAssigned:     {EventFinished: true, EventFollowUp: true},
			EventFinished:             {},
		},
	},
	EntityAppointment: {
		allowed: map[Status]map[Status]bool{
			AppointmentPending:   {AppointmentConfirmed: true, AppointmentCancelled: true},
			AppointmentConfirmed: {AppointmentCompleted: true, AppointmentCancelled: true},
			AppointmentCompleted: {},
			AppointmentCancelled: {},
		},
		// re-confirming reschedules the appointment
		idempotent: map[Status]bool{AppointmentConfirmed: true},
	},
	EntityMaintenance: {
		allowed: map[Status]map[Status]bool{
			MaintenancePending:    {MaintenanceInProgress: true, MaintenanceFinalized: true},
			MaintenanceInProgress: {MaintenanceFinalized: true},
			MaintenanceFinalized:  {},
		},
	},
	EntityResource: {
		allowed: map[Status]map[Status]bool{
			ResourceAvailable:    {ResourceMaintenance: true, ResourceOutOfService: true},
			ResourceMaintenance:  {ResourceAvailable: true, ResourceOutOfService: true},
			ResourceOutOfService: {ResourceAvailable: true},
		},
	},
	EntityPayment: {
		allowed: map[Status]map[Status]bool{
			PaymentPending:  {PaymentApproved: true, PaymentRejected: true},
			PaymentRejected: {PaymentPending: true},
			PaymentApproved: {},
		},
	},
}

// Legacy values still stored by older clients.
var aliases = map[string]string{
	"APROBADO":          "APPROVED",
	"RECHAZADO":         "REJECTED",
	"PENDIENTE":         "PENDING",
	"CONFIRMADO":        "CONFIRMED",
	"CANCELADO":         "CANCELLED",
	"EN_PROCESO":        "IN_PROGRESS",
	"DISPONIBLE":        "AVAILABLE",
	"SEGUIMIENTO":       "FOLLOW_UP",
	"EN_MANTENIMIENTO":  "MAINTENANCE",
	"FUERA_DE_SERVICIO": "OUT_OF_SERVICE",
}

type InvalidTransitionError struct {
	Entity Entity
	From   Status
	To     Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s transition: %s -> %s", e.Entity, e.From, e.To)
}

// Validate reports whether current -> requested is whitelisted for the entity.
// Same-state requests are only accepted for idempotent states.
func Validate(entity Entity, current, requested Status) error {
	t, ok := tables[entity]
	if !ok {
		return fmt.Errorf("unknown entity: %s", entity)
	}
	if current == requested {
		if t.idempotent[current] {
			return nil
		}
		return &InvalidTransitionError{Entity: entity, From: current, To: requested}
	}
	if !t.allowed[current][requested] {
		return &InvalidTransitionError{Entity: entity, From: current, To: requested}
	}
	return nil
}

func CanTransition(entity Entity, from, to Status) bool {
	return Validate(entity, from, to) == nil
}

// Parse resolves a wire value (including legacy aliases) to a status known by the entity.
func Parse(entity Entity, s string) (Status, error) {
	t, ok := tables[entity]
	if !ok {
		return "", fmt.Errorf("unknown entity: %s", entity)
	}
	v := strings.ToUpper(strings.TrimSpace(s))
	if v == "FINALIZADO" {
		if entity == EntityEvent {
			v = string(EventFinished)
		} else {
			v = string(MaintenanceFinalized)
		}
	}
	if a, ok := aliases[v]; ok {
		v = a
	}
	if _, ok := t.allowed[Status(v)]; !ok {
		return "", fmt.Errorf("unknown %s status: %s", entity, s)
	}
	return Status(v), nil
}

// Statuses lists every status of the entity.
func Statuses(entity Entity) []Status {
	t := tables[entity]
	out := make([]Status, 0, len(t.allowed))
	for s := range t.allowed {
		out = append(out, s)
	}
	return out
}

// GateError is a business rule layered on top of an allowed transition.
type GateError struct {
	Code    string
	Message string
}

func (e *GateError) Error() string {
	return e.Message
}
