package sales

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// payloadHash fingerprints the economically meaningful fields of a
// submission. A replayed idempotency key whose hash differs is a client bug
// and must be rejected rather than silently resolved.
func payloadHash(input RecordSaleInput) (string, error) {
	canonical := struct {
		SessionID string          `json:"session_id"`
		Items     []SaleItemInput `json:"items"`
	}{
		SessionID: input.SessionID.String(),
		Items:     input.Items,
	}

	raw, err := json.Marshal(canonical)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
