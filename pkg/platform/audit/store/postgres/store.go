package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rgpdgate/pkg/domain"
	audit "rgpdgate/pkg/platform/audit"
	txcontext "rgpdgate/pkg/platform/tx"
)

// Store persists audit events to the append-only audit_events table. It runs
// on the transaction opened by the tenant scope, so an event is committed
// together with the mutation it records, and row-level security applies.
type Store struct{}

func New() *Store {
	return &Store{}
}

func (s *Store) Write(ctx context.Context, event audit.Event) error {
	q, err := txcontext.Require(ctx)
	if err != nil {
		return err
	}
	metadata, err := json.Marshal(orEmpty(event.Metadata))
	if err != nil {
		return fmt.Errorf("marshal audit metadata: %w", err)
	}

	_, err = q.Exec(ctx, `
		INSERT INTO audit_events (id, event_name, actor_scope, actor_id, tenant_id, target_id, metadata, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		uuid.UUID(event.ID),
		string(event.EventName),
		string(event.ActorScope),
		nullableUser(event.ActorID),
		nullableTenant(event.TenantID),
		nullableString(event.TargetID),
		metadata,
		event.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *Store) ListBySubject(ctx context.Context, tenantID domain.TenantID, userID domain.UserID, limit int) ([]audit.Event, error) {
	q, err := txcontext.Require(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, `
		SELECT id, event_name, actor_scope, actor_id, tenant_id, target_id, metadata, occurred_at
		FROM audit_events
		WHERE tenant_id = $1 AND (actor_id = $2 OR target_id = $3)
		ORDER BY occurred_at DESC, seq DESC
		LIMIT $4
	`, uuid.UUID(tenantID), uuid.UUID(userID), userID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			id, actor, tenant *uuid.UUID
			name, scope       string
			target            *string
			metadata          []byte
			occurredAt        time.Time
		)
		if err := rows.Scan(&id, &name, &scope, &actor, &tenant, &target, &metadata, &occurredAt); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e := audit.Event{
			EventName:  audit.EventName(name),
			ActorScope: domain.ActorScope(scope),
			OccurredAt: occurredAt.UTC(),
		}
		if id != nil {
			e.ID = domain.EventID(*id)
		}
		if actor != nil {
			e.ActorID = domain.UserID(*actor)
		}
		if tenant != nil {
			e.TenantID = domain.TenantID(*tenant)
		}
		if target != nil {
			e.TargetID = *target
		}
		if len(metadata) > 0 && string(metadata) != "{}" {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal audit metadata: %w", err)
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// AnonymizeActor clears references to an erased user. The migration grants
// UPDATE on these two columns only.
func (s *Store) AnonymizeActor(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) error {
	q, err := txcontext.Require(ctx)
	if err != nil {
		return err
	}
	_, err = q.Exec(ctx, `
		UPDATE audit_events
		SET actor_id = CASE WHEN actor_id = $2 THEN NULL ELSE actor_id END,
		    target_id = CASE WHEN target_id = $3 THEN NULL ELSE target_id END
		WHERE tenant_id = $1 AND (actor_id = $2 OR target_id = $3)
	`, uuid.UUID(tenantID), uuid.UUID(userID), userID.String())
	if err != nil {
		return fmt.Errorf("anonymize audit actor: %w", err)
	}
	return nil
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func nullableUser(id domain.UserID) *uuid.UUID {
	if id.IsNil() {
		return nil
	}
	u := uuid.UUID(id)
	return &u
}

func nullableTenant(id domain.TenantID) *uuid.UUID {
	if id.IsNil() {
		return nil
	}
	u := uuid.UUID(id)
	return &u
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
