package domain

import (
	"encoding/hex"
	"strconv"
	"strings"

	dErrors "warranty/pkg/domain-errors"
)

// Address identifies a principal: a seller, a buyer or a token holder.
// Addresses are 0x-prefixed 20-byte hex strings held in lowercase so that
// comparisons are case-insensitive.
type Address string

const addressHexLen = 40

// ZeroAddress is the canonical zero identity.
const ZeroAddress Address = "0x0000000000000000000000000000000000000000"

// ParseAddress validates and normalizes an address at a trust boundary.
// The zero address parses successfully; callers decide whether it is allowed.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "address is required")
	}
	body, ok := strings.CutPrefix(s, "0x")
	if !ok {
		body, ok = strings.CutPrefix(s, "0X")
	}
	if !ok || len(body) != addressHexLen {
		return "", dErrors.New(dErrors.CodeValidation, "address must be 0x followed by 40 hex characters")
	}
	if _, err := hex.DecodeString(body); err != nil {
		return "", dErrors.New(dErrors.CodeValidation, "address must be 0x followed by 40 hex characters")
	}
	return Address("0x" + strings.ToLower(body)), nil
}

// IsZero reports whether a is the empty or the all-zero identity.
func (a Address) IsZero() bool {
	s := strings.TrimSpace(string(a))
	if s == "" {
		return true
	}
	body, ok := strings.CutPrefix(s, "0x")
	if !ok {
		body, ok = strings.CutPrefix(s, "0X")
	}
	if !ok || body == "" {
		return false
	}
	return strings.Trim(body, "0") == ""
}

// IsValid reports whether a is well-formed.
func (a Address) IsValid() bool {
	_, err := ParseAddress(string(a))
	return err == nil
}

// Equal compares addresses case-insensitively.
func (a Address) Equal(other Address) bool {
	return strings.EqualFold(strings.TrimSpace(string(a)), strings.TrimSpace(string(other)))
}

func (a Address) String() string {
	return string(a)
}

// CertificateID is the sequential identifier of a certificate. Identifiers
// start at 0 and equal the number of certificates created before it.
type CertificateID uint64

// ParseCertificateID parses a decimal certificate identifier.
func ParseCertificateID(s string) (CertificateID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, dErrors.New(dErrors.CodeBadRequest, "certificate id is required")
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeBadRequest, "certificate id must be a non-negative integer")
	}
	return CertificateID(v), nil
}

func (id CertificateID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}
