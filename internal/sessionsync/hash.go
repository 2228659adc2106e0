package sessionsync

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"scoresheet/internal/wire"
)

// Digest fingerprints the render-relevant parts of a state document.
// Excluded from the digest, by design of the change detector:
//   - doc.Timestamp: regenerated by the server on every poll, so including
//     it would make every response look new and defeat de-duplication.
//
// Everything else (session, events, currentUserId) participates. JSON
// marshaling is canonical here: struct fields keep declaration order and
// map keys are sorted.
func Digest(doc *wire.StateDocument) string {
	if doc == nil {
		return ""
	}
	payload := struct {
		Session       wire.SessionSnapshot `json:"session"`
		Events        []wire.SessionEvent  `json:"events"`
		CurrentUserID *int64               `json:"currentUserId"`
	}{doc.Session, doc.Events, doc.CurrentUserID}
	b, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
