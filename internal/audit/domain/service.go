package domain

import "context"

// Service records immutable audit entries. AuditLog never blocks the calling
// flow on bad input; only storage failures surface as errors.
type Service interface {
	AuditLog(ctx context.Context, actorType string, actorID *string, action, targetType string, targetID *string, metadata map[string]any) error
	List(ctx context.Context, filter ListFilter) ([]*AuditLog, error)
}
