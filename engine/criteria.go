package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// EventItemCreated is the only domain event type currently understood.
const EventItemCreated = "item_created"

// ErrInvalidPayload marks a structurally invalid event payload.
var ErrInvalidPayload = errors.New("invalid event payload")

// ItemCreated is the payload of an item_created event. Feature areas that
// have nothing to create (permission updates, circle removals) synthesise one
// to drive engagement missions.
type ItemCreated struct {
	Source                 string    `json:"source"`
	Category               string    `json:"category"`
	Subtype                string    `json:"subtype"`
	CreatedAt              time.Time `json:"created_at"`
	FieldCount             int       `json:"field_count"`
	CriticalFieldCompleted bool      `json:"critical_field_completed"`
	UniqueHash             string    `json:"unique_hash"`
}

// Validate checks the structural requirements of the payload.
func (e ItemCreated) Validate() error {
	var problems []string
	if strings.TrimSpace(e.Source) == "" {
		problems = append(problems, "source is required")
	}
	if e.CreatedAt.IsZero() {
		problems = append(problems, "created_at is required")
	}
	if e.FieldCount < 0 {
		problems = append(problems, "field_count must not be negative")
	}
	if strings.TrimSpace(e.UniqueHash) == "" {
		problems = append(problems, "unique_hash is required")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidPayload, strings.Join(problems, "; "))
	}
	return nil
}

// Criterion decides whether an event moves a mission towards completion.
// Evaluate returns the updated progress blob and whether the claimable
// threshold is met. Returning the input progress unchanged means the event
// did not count.
type Criterion interface {
	Evaluate(evt ItemCreated, progress json.RawMessage) (json.RawMessage, bool, error)
}

// CriterionFunc is a typed criterion over a progress struct P. It mutates p
// and reports whether anything changed and whether the mission is complete.
type CriterionFunc[P any] func(evt ItemCreated, p *P) (changed, met bool)

// Typed adapts a CriterionFunc to the Criterion interface, handling the JSON
// round trip of the progress blob.
func Typed[P any](fn CriterionFunc[P]) Criterion {
	return typedCriterion[P]{fn: fn}
}

type typedCriterion[P any] struct {
	fn CriterionFunc[P]
}

func (t typedCriterion[P]) Evaluate(evt ItemCreated, raw json.RawMessage) (json.RawMessage, bool, error) {
	var p P
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &p); err != nil {
			return raw, false, fmt.Errorf("decode progress: %w", err)
		}
	}
	changed, met := t.fn(evt, &p)
	if !changed {
		return raw, met, nil
	}
	out, err := json.Marshal(p)
	if err != nil {
		return raw, false, fmt.Errorf("encode progress: %w", err)
	}
	return out, met, nil
}

// Registry maps mission codes to their completion criteria.
type Registry struct {
	criteria map[string]Criterion
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{criteria: make(map[string]Criterion)}
}

// Register binds code to c, replacing any previous binding.
func (r *Registry) Register(code string, c Criterion) {
	r.criteria[code] = c
}

// Lookup returns the criterion for code.
func (r *Registry) Lookup(code string) (Criterion, bool) {
	c, ok := r.criteria[code]
	return c, ok
}

// Codes lists the registered mission codes in sorted order.
func (r *Registry) Codes() []string {
	codes := make([]string, 0, len(r.criteria))
	for code := range r.criteria {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
