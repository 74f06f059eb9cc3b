package domain

import (
	"encoding/hex"
	"strconv"
	"strings"

	"task-ledger/internal/errors"
)

// Address identifies an account. It is always stored in canonical form:
// "0x" followed by 40 lower-case hex digits.
type Address string

// ZeroAddress is the all-zero account
const ZeroAddress Address = "0x0000000000000000000000000000000000000000"

// SepoliaChainID is the network the client targets by default (0xaa36a7)
const SepoliaChainID uint64 = 11155111

// ParseAddress validates and canonicalizes an account address
func ParseAddress(s string) (Address, error) {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "0x") && !strings.HasPrefix(trimmed, "0X") {
		return "", errors.NewInvalidInputError("account", s, "must start with 0x")
	}
	digits := trimmed[2:]
	if len(digits) != 40 {
		return "", errors.NewInvalidInputError("account", s, "must have 40 hex digits")
	}
	if _, err := hex.DecodeString(digits); err != nil {
		return "", errors.NewInvalidInputError("account", s, "must be hexadecimal")
	}
	return Address("0x" + strings.ToLower(digits)), nil
}

// MustParseAddress is ParseAddress for constants and tests
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String returns the canonical form
func (a Address) String() string {
	return string(a)
}

// Short abbreviates the address for display, e.g. 0x1234…abcd
func (a Address) Short() string {
	if len(a) < 10 {
		return string(a)
	}
	return string(a[:6]) + "…" + string(a[len(a)-4:])
}

// ParseChainID accepts a decimal ("11155111") or hex ("0xaa36a7") network id
func ParseChainID(s string) (uint64, error) {
	trimmed := strings.ToLower(strings.TrimSpace(s))
	var (
		id  uint64
		err error
	)
	if strings.HasPrefix(trimmed, "0x") {
		id, err = strconv.ParseUint(trimmed[2:], 16, 64)
	} else {
		id, err = strconv.ParseUint(trimmed, 10, 64)
	}
	if err != nil || id == 0 {
		return 0, errors.NewInvalidInputError("chain_id", s, "must be a positive decimal or 0x-prefixed hex number")
	}
	return id, nil
}

// FormatChainID renders a chain id the way wallets report it
func FormatChainID(id uint64) string {
	return "0x" + strconv.FormatUint(id, 16)
}
