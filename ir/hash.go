package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/teranos/bridgegen/errors"
)

// Domain prefixes for content fingerprints. The version suffix allows the
// algorithm to change without old fingerprints colliding with new ones.
const (
	DomainIR       = "bridgegen/ir/v1"
	DomainArtifact = "bridgegen/artifact/v1"
)

// Fingerprint computes SHA256(domain + 0x00 + data) as lowercase hex.
// The null byte separator prevents domain/data boundary ambiguity.
func Fingerprint(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Canonical encodes m as JSON. Struct fields encode in declaration order and
// the IR holds no maps, so equal IRs encode to equal bytes.
func Canonical(m *IR) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode IR")
	}
	return data, nil
}

// FingerprintIR is the content fingerprint of the canonical encoding of m.
func FingerprintIR(m *IR) (string, error) {
	data, err := Canonical(m)
	if err != nil {
		return "", err
	}
	return Fingerprint(DomainIR, data), nil
}
