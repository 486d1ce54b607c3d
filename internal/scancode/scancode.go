// Package scancode implements the scannable encoding printed on a pass: a
// short tagged string embedding the human-readable admission code plus an
// issuance nonce, small enough for a 2-D barcode.
package scancode

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"pass-system/utils"
)

// Marker identifies payloads produced by this issuer. Scanners sometimes
// hand us the bare code (marker stripped by an intermediate app), so
// decoding falls back to treating the whole payload as a code candidate.
const Marker = "EPS1"

const sep = "|"

// Encode builds the scan payload for an admission code. The nonce and issue
// time keep two accidentally similar codes from being replay-confused.
func Encode(code string, nonce uuid.UUID, issuedAt time.Time) string {
	return strings.Join([]string{Marker, code, nonce.String(), strconv.FormatInt(issuedAt.Unix(), 10)}, sep)
}

// Decode extracts the admission code candidate from a scanned payload.
// It never fails: anything that is not a well-formed tagged payload is
// normalized and returned as the candidate itself, and the downstream
// lookup decides whether it exists.
func Decode(payload string) string {
	payload = strings.TrimSpace(payload)

	if !strings.HasPrefix(payload, Marker+sep) {
		return utils.NormalizeTicketCode(payload)
	}

	parts := strings.Split(payload, sep)
	if len(parts) < 2 || parts[1] == "" {
		return utils.NormalizeTicketCode(payload)
	}

	return utils.NormalizeTicketCode(parts[1])
}

// Nonce returns the issuance nonce of a tagged payload, or an error when the
// payload is untagged or carries a malformed nonce.
func Nonce(payload string) (uuid.UUID, error) {
	parts := strings.Split(strings.TrimSpace(payload), sep)
	if len(parts) < 3 || parts[0] != Marker {
		return uuid.Nil, fmt.Errorf("scancode: payload has no nonce")
	}
	return uuid.Parse(parts[2])
}
