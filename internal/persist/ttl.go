package persist

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// TTL is a time-to-live in seconds.
// The sentinels Skip and AdapterDefault carry policy meaning; +Inf means the
// value never expires.
type TTL float64

const (
	// Skip means the value must not be persisted.
	Skip TTL = 0

	// AdapterDefault means the value is persisted with the storage adapter's
	// own default expiry.
	AdapterDefault TTL = -1
)

// Forever is a TTL that never expires.
var Forever = TTL(math.Inf(1))

// IsForever reports whether t never expires.
func (t TTL) IsForever() bool {
	return math.IsInf(float64(t), 1)
}

// maxDurationSeconds is the first TTL a time.Duration cannot hold.
const maxDurationSeconds = float64(math.MaxInt64) / float64(time.Second)

// Duration converts a positive finite TTL to a time.Duration.
// Returns false for Forever, for non-positive values and for TTLs too long
// for a time.Duration (about 292 years).
func (t TTL) Duration() (time.Duration, bool) {
	if t.IsForever() || math.IsNaN(float64(t)) || t <= 0 || float64(t) >= maxDurationSeconds {
		return 0, false
	}
	return time.Duration(float64(t) * float64(time.Second)), true
}

// Unbounded reports whether t never expires in practice: Forever, or a
// finite TTL beyond the range of time.Duration.
func (t TTL) Unbounded() bool {
	return t.IsForever() || float64(t) >= maxDurationSeconds
}

// String renders the TTL the way command sources write it.
func (t TTL) String() string {
	if t.IsForever() {
		return "inf"
	}
	return strconv.FormatFloat(float64(t), 'f', -1, 64)
}

// ParseTTL converts a command argument into a TTL.
//
// Accepted forms: any Go integer or float type, TTL, json.Number, and the
// strings "inf", "+inf", "infinity" (case-insensitive) or a decimal number.
func ParseTTL(v any) (TTL, error) {
	switch n := v.(type) {
	case TTL:
		return n, nil
	case float64:
		return TTL(n), nil
	case float32:
		return TTL(n), nil
	case int:
		return TTL(n), nil
	case int8:
		return TTL(n), nil
	case int16:
		return TTL(n), nil
	case int32:
		return TTL(n), nil
	case int64:
		return TTL(n), nil
	case uint:
		return TTL(n), nil
	case uint8:
		return TTL(n), nil
	case uint16:
		return TTL(n), nil
	case uint32:
		return TTL(n), nil
	case uint64:
		return TTL(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("parse ttl %q: %w", n.String(), err)
		}
		return TTL(f), nil
	case string:
		switch strings.ToLower(strings.TrimSpace(n)) {
		case "inf", "+inf", "infinity", "+infinity":
			return Forever, nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("parse ttl %q: %w", n, err)
		}
		return TTL(f), nil
	default:
		return 0, fmt.Errorf("parse ttl: unsupported type %T", v)
	}
}
