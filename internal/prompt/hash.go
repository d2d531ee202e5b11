package prompt

import (
	"crypto/sha256"
	"encoding/hex"
)

// Domain prefix for prompt content hashes.
// Version suffix enables future algorithm migration.
const hashDomain = "atelier/prompt/v1"

// Hash computes a stable content hash for a prompt.
// Format: SHA256(domain + 0x00 + prompt), hex encoded.
// The null byte separator prevents domain/data boundary ambiguity.
//
// Prompts themselves are never persisted; logs and the run ledger
// record this hash, which is enough to tell whether two runs saw the
// same prompt bytes.
func Hash(p string) string {
	h := sha256.New()
	h.Write([]byte(hashDomain))
	h.Write([]byte{0x00})
	h.Write([]byte(p))
	return hex.EncodeToString(h.Sum(nil))
}
