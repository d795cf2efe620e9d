package maintenance

import (
	"time"

	"eventservices/internal/status"
)

// transition moves m to next and stamps FinalizedAt when the record closes.
func transition(m *Maintenance, next status.Status, now time.Time) error {
	if err := status.Validate(status.EntityMaintenance, m.Status, next); err != nil {
		return err
	}
	m.Status = next
	if next == status.MaintenanceFinalized {
		t := now.UTC()
		m.FinalizedAt = &t
	}
	m.Touch(now)
	return nil
}
