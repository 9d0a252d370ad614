// Package audit provides the append-only record of security-relevant
// actions. Writes are asynchronous and best-effort: an entry queued just
// before a process crash may be lost, which is an accepted tradeoff for
// keeping audit writes off the request path.
package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

type Module string

const (
	ModulePayment  Module = "payment"
	ModuleRefund   Module = "refund"
	ModuleWebhook  Module = "webhook"
	ModuleSecurity Module = "security"
)

// Entry is one recorded action. Actor name and role are denormalized so the
// history stays accurate if the actor is later renamed or deleted.
type Entry struct {
	ID          string
	ActorID     string
	ActorName   string
	ActorRole   string
	Action      string
	Module      Module
	Severity    Severity
	Description string

	TargetID     string
	TargetModel  string
	PreviousData json.RawMessage
	NewData      json.RawMessage
	IPAddress    string
	UserAgent    string

	CreatedAt time.Time
}

func (e *Entry) fillDefaults() {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Severity == "" {
		e.Severity = SeverityInfo
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
}
