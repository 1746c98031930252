// Package generalize canonicalizes free-text log and knowledge-base
// messages so that semantically-equivalent strings compare well.
// Instance-specific values (addresses, line numbers, paths) are replaced
// with fixed tokens before similarity matching.
package generalize

import (
	"regexp"
	"strings"
)

// Replacement tokens. These must stay lowercase and punctuation-free so
// that Message is idempotent.
const (
	TokenIP     = "ip address"
	TokenHex    = "hex value"
	TokenPath   = "file path"
	TokenNumber = "number"
)

var (
	ipv4Re = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)
	hexRe  = regexp.MustCompile(`0x[0-9a-f]+`)
	pathRe = regexp.MustCompile(`(?:/[^/ ]*)+/?`)
	// Any digit run. Standalone integers and digits embedded in
	// identifiers both collapse to the same token, so the output never
	// contains a digit.
	numRe   = regexp.MustCompile(`\d+`)
	punctRe = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// Message returns the canonical form of text. The transform is total and
// deterministic, and applying it twice is a no-op:
//
//	"Connection from 192.168.1.100 failed"  -> "connection from ip address failed"
//	"Error at line 42 in /var/log/app.log"  -> "error at line number in file path"
//	"Memory address 0xABCD1234"             -> "memory address hex value"
func Message(text string) string {
	s := strings.ToLower(text)
	s = ipv4Re.ReplaceAllString(s, TokenIP)
	s = hexRe.ReplaceAllString(s, TokenHex)
	s = pathRe.ReplaceAllString(s, TokenPath)
	s = numRe.ReplaceAllString(s, " "+TokenNumber+" ")
	s = punctRe.ReplaceAllString(s, " ")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
