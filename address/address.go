// Package address validates refund and recipient addresses per chain
// family.
package address

import (
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/linkclaim/settle-go/types"
)

var (
	// Base58 alphabet: 123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz
	solanaRe  = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)
	nearRe    = regexp.MustCompile(`^[a-z0-9_-]+\.near$`)
	nearHexRe = regexp.MustCompile(`^[0-9a-f]{64}$`)
	bitcoinRe = regexp.MustCompile(`^(bc1|[13])[a-zA-Z0-9]{25,62}$`)
)

// Validate reports whether addr is a plausible address for the given
// chain. Chains outside the known families fall back to the EVM check;
// that accepts hex addresses for genuinely unsupported chains, which is
// the intended behavior for forward compatibility with new EVM chains.
func Validate(addr string, chain types.Chain) bool {
	if addr == "" {
		return false
	}

	switch {
	case chain.IsSolana():
		return solanaRe.MatchString(addr)
	case chain.IsNear():
		return nearRe.MatchString(addr) || nearHexRe.MatchString(addr)
	case chain.IsBitcoin():
		return bitcoinRe.MatchString(addr)
	default:
		// EVM family and unknown chains. The 0x prefix is mandatory.
		return strings.HasPrefix(addr, "0x") && common.IsHexAddress(addr)
	}
}
