package persist

import (
	"fmt"
	"math"
)

// DecisionKind enumerates the outcomes of the persistence policy.
type DecisionKind int

const (
	// DecisionSkip stores nothing.
	DecisionSkip DecisionKind = iota
	// DecisionPersistDefault stores without an explicit expiry.
	DecisionPersistDefault
	// DecisionPersistWithTTL stores with Decision.TTL.
	DecisionPersistWithTTL
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionSkip:
		return "skip"
	case DecisionPersistDefault:
		return "persist_default"
	case DecisionPersistWithTTL:
		return "persist_with_ttl"
	default:
		return fmt.Sprintf("decision(%d)", int(k))
	}
}

// Decision is the result of evaluating the policy for one set event.
type Decision struct {
	Kind DecisionKind
	// TTL is only meaningful for DecisionPersistWithTTL.
	TTL TTL
}

// TTLSource supplies the computed TTL for a key/value pair.
// Processors implement it through their PersistTime hook.
type TTLSource interface {
	PersistTime(key string, value any) TTL
}

// Saver is the write half of a storage adapter.
// An omitted ttl means the adapter's default expiry applies.
type Saver interface {
	Save(key string, value any, ttl ...TTL) error
}

// Decide evaluates the policy table.
//
// explicit is nil when the set call carried no TTL. source is consulted
// exactly once, and only in that case.
func Decide(key string, value any, explicit *TTL, source TTLSource) Decision {
	if explicit != nil {
		return decisionFor(*explicit)
	}
	return decisionFor(source.PersistTime(key, value))
}

// decisionFor maps an effective TTL onto a Decision.
// Negative values other than AdapterDefault, and NaN, never persist.
func decisionFor(ttl TTL) Decision {
	switch {
	case math.IsNaN(float64(ttl)):
		return Decision{Kind: DecisionSkip}
	case ttl == AdapterDefault:
		return Decision{Kind: DecisionPersistDefault}
	case ttl > 0:
		return Decision{Kind: DecisionPersistWithTTL, TTL: ttl}
	default:
		return Decision{Kind: DecisionSkip}
	}
}

// Apply decides and executes the decision against saver.
// Skip performs no storage call at all.
func Apply(saver Saver, source TTLSource, key string, value any, explicit *TTL) (Decision, error) {
	d := Decide(key, value, explicit, source)

	switch d.Kind {
	case DecisionPersistWithTTL:
		if err := saver.Save(key, value, d.TTL); err != nil {
			return d, fmt.Errorf("save %q: %w", key, err)
		}
	case DecisionPersistDefault:
		if err := saver.Save(key, value); err != nil {
			return d, fmt.Errorf("save %q: %w", key, err)
		}
	}

	return d, nil
}
