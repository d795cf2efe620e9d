package db

import "time"

// Timestamps is embedded by records that track creation and modification times.
// Repositories call Touch on every write instead of relying on column defaults,
// so the values returned to callers match what was stored.
type Timestamps struct {
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Touch sets UpdatedAt to now, and CreatedAt too when it has never been set.
func (t *Timestamps) Touch(now time.Time) {
	now = now.UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
}
