package plan

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Domain prefix for content hashing. The version suffix leaves room for
// algorithm migration without colliding with old hashes.
const domainBatch = "archplan/batch/v1"

// hashWithDomain computes SHA-256 with domain separation:
// SHA256(domain + 0x00 + data). The null byte prevents domain/data
// boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// PayloadHash computes the idempotency hash over a raw batch body. The
// body is decoded with UseNumber, the idempotency key is removed, and
// the remainder is canonically serialized, so field order and key
// placement never produce false conflicts.
func PayloadHash(raw []byte) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return "", fmt.Errorf("payload hash: decode body: %w", err)
	}
	delete(body, "idempotencyKey")

	canonical, err := MarshalCanonical(body)
	if err != nil {
		return "", fmt.Errorf("payload hash: %w", err)
	}
	return hashWithDomain(domainBatch, canonical), nil
}
