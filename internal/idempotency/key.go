package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"example.com/legacyfund/internal/submission"
)

type KeySource string

const (
	KeyFromHeader  KeySource = "header"
	KeyFromPayload KeySource = "payload"
)

const maxHeaderKeyLen = 128

// DeriveKey returns a stable idempotency key for creating sub on behalf of owner.
// - Prefer the client's Idempotency-Key header when it is usable.
// - Fallback to a hex SHA-256 of the owner and the canonical JSON payload, which is
//   stable because Assemble is deterministic for the same draft and rates.
func DeriveKey(owner, header string, sub *submission.CampaignSubmission) (key string, src KeySource, err error) {
	if h := strings.TrimSpace(header); h != "" && len(h) <= maxHeaderKeyLen {
		return owner + ":" + h, KeyFromHeader, nil
	}
	payload, err := json.Marshal(sub)
	if err != nil {
		return "", "", err
	}
	sum := sha256.Sum256(append([]byte(owner+"|"), payload...))
	return hex.EncodeToString(sum[:]), KeyFromPayload, nil
}
