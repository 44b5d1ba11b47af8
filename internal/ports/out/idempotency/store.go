package idempotency

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// Key is the value of the Idempotency-Key request header.
type Key string

// Fingerprint names one idempotent request: who sent it (Subject, empty for
// public routes), where (Method, and Route as the path such as
// "/api/register"), under which Key, and with which body.
//
// A fingerprint with an empty BodyHash addresses the meta record that pins a
// key to the first body it was used with.
type Fingerprint struct {
	Key      Key
	Subject  string
	Method   string
	Route    string
	BodyHash string
}

// ForBody returns the fingerprint of the stored response for bodyHash.
func (fp Fingerprint) ForBody(bodyHash string) Fingerprint {
	fp.BodyHash = bodyHash
	return fp
}

// Record is a stored response, or for meta records the pinned body hash.
type Record struct {
	StatusCode  int
	ContentType string
	Body        []byte
	CreatedAt   time.Time
}

// Replayable reports whether the record is a successful JSON response that can
// be returned verbatim to a retried request.
func (r Record) Replayable() bool {
	return r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices &&
		strings.HasPrefix(r.ContentType, "application/json")
}

// Store persists idempotency records. Implementations drop records older than
// their TTL; Get never returns an expired record.
type Store interface {
	Get(ctx context.Context, fp Fingerprint) (Record, bool, error)
	Put(ctx context.Context, fp Fingerprint, rec Record) error
}
