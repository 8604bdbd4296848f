package models

import (
	"regexp"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
)

var (
	implicitAccountRe = regexp.MustCompile(`^[0-9a-f]{64}$`)
	namedAccountRe    = regexp.MustCompile(`^(([a-z\d]+[-_])*[a-z\d]+\.)*([a-z\d]+[-_])*[a-z\d]+$`)
	legacyBTCRe       = regexp.MustCompile(`^[13mn2][a-km-zA-HJ-NP-Z1-9]{25,34}$`)
)

// ValidAccountID reports whether id is a well-formed execution-chain
// account: either a 64-char hex implicit account or a named account of
// 2 to 64 chars.
func ValidAccountID(id string) bool {
	if len(id) < 2 || len(id) > 64 {
		return false
	}
	if implicitAccountRe.MatchString(id) {
		return true
	}
	return namedAccountRe.MatchString(id)
}

// ValidBTCAddress reports whether addr is a plausible bitcoin address:
// bech32 segwit (bc1/tb1/bcrt1) or legacy base58.
func ValidBTCAddress(addr string) bool {
	if addr == "" {
		return false
	}
	lower := strings.ToLower(addr)
	if strings.HasPrefix(lower, "bc1") || strings.HasPrefix(lower, "tb1") || strings.HasPrefix(lower, "bcrt1") {
		_, _, err := bech32.Decode(lower)
		return err == nil
	}
	return legacyBTCRe.MatchString(addr)
}
