package upload

import (
	"errors"
	"strings"
)

// Kind is the failure classification driving the retry state machine.
type Kind int

const (
	// KindFatal is never retried.
	KindFatal Kind = iota
	// KindTransient clears with backoff on the same connection.
	KindTransient
	// KindConnection means the transport is unusable and must be replaced.
	KindConnection
	// KindOversized means the payload exceeded the sink's size limit and the
	// batch must be split.
	KindOversized
)

func (k Kind) String() string {
	switch k {
	case KindFatal:
		return "fatal"
	case KindTransient:
		return "transient"
	case KindConnection:
		return "connection"
	case KindOversized:
		return "oversized"
	default:
		return "unknown"
	}
}

// Marker sets are matched against the flattened cause chain. The connection
// and transient sets must stay disjoint over any realistic error string; the
// classifier tests pin that property.
var connectionMarkers = []string{
	"broken pipe",
	"connection reset",
	"connection refused",
	"connection error",
	"unexpected end of file",
}

var transientMarkers = []string{
	"not found",
	"deleted",
	"503",
	"500",
	"403",
	"429",
	"rate",
	"quota",
	"timeout",
}

var oversizedMarkers = []string{
	"413",
	"request entity too large",
}

// ChainString flattens an error's cause chain into one string, all causes
// joined with " | ", so classification sees every layer of wrapping.
func ChainString(err error) string {
	var parts []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		parts = append(parts, e.Error())
	}
	return strings.Join(parts, " | ")
}

// Classify maps an error to the kind governing how the uploader reacts.
func Classify(err error) Kind {
	if err == nil {
		return KindFatal
	}

	msg := ChainString(err)
	switch {
	case isOversizedError(msg):
		return KindOversized
	case isConnectionError(msg):
		return KindConnection
	case isTransientError(msg):
		return KindTransient
	default:
		return KindFatal
	}
}

func isConnectionError(msg string) bool {
	if strings.Contains(msg, "EOF") {
		return true
	}
	return containsAny(strings.ToLower(msg), connectionMarkers)
}

func isTransientError(msg string) bool {
	return containsAny(strings.ToLower(msg), transientMarkers)
}

func isOversizedError(msg string) bool {
	return containsAny(strings.ToLower(msg), oversizedMarkers)
}

func containsAny(msg string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
