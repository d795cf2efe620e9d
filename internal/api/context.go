package api

import (
	"context"

	"eventservices/pkg/authtoken"
)

type ctxKey string

const (
	ctxKeyStaff     ctxKey = "staff"
	ctxKeyRequestID ctxKey = "request_id"
)

func WithStaff(ctx context.Context, s *authtoken.Staff) context.Context {
	return context.WithValue(ctx, ctxKeyStaff, s)
}

func StaffFromContext(ctx context.Context) *authtoken.Staff {
	v := ctx.Value(ctxKeyStaff)
	if v == nil {
		return nil
	}
	s, _ := v.(*authtoken.Staff)
	return s
}

// ActorID is the staff id used in audit rows, "system" when unauthenticated.
func ActorID(ctx context.Context) string {
	if s := StaffFromContext(ctx); s != nil {
		return s.ID
	}
	return "system"
}

func RequestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyRequestID).(string)
	return v
}
