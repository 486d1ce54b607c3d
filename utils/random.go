package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// codeAlphabet leaves out 0/O/1/I/L so a gate operator can type a code back
// without transcription ambiguity.
const codeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

const (
	codeSegments   = 3
	codeSegmentLen = 4
)

// GenerateCode returns an uppercase hex string of n random bytes, used for
// opaque references.
func GenerateCode(n int) (string, error) {
	byt := make([]byte, n)

	if _, err := rand.Read(byt); err != nil {
		return "", err
	}

	return strings.ToUpper(hex.EncodeToString(byt)), nil
}

// GenerateTicketCode returns a fixed-length admission code made of
// independently random segments over the unambiguous alphabet, e.g.
// "7GJK-Q2MN-XW4B". Uniqueness is the caller's problem; on a collision the
// caller regenerates.
func GenerateTicketCode() (string, error) {
	segments := make([]string, 0, codeSegments)

	for i := 0; i < codeSegments; i++ {
		seg, err := randomSegment(codeSegmentLen)
		if err != nil {
			return "", err
		}
		segments = append(segments, seg)
	}

	return strings.Join(segments, "-"), nil
}

func randomSegment(length int) (string, error) {
	byt := make([]byte, length)

	if _, err := rand.Read(byt); err != nil {
		return "", err
	}

	for i := 0; i < length; i++ {
		byt[i] = codeAlphabet[int(byt[i])%len(codeAlphabet)]
	}

	return string(byt), nil
}

// NormalizeTicketCode uppercases a hand-typed code and strips surrounding
// whitespace so "7gjk-q2mn-xw4b " resolves like the printed form.
func NormalizeTicketCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
