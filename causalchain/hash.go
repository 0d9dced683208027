package causalchain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/mandubian/ccos-sub008/ccoserr"
	"github.com/mandubian/ccos-sub008/value"
)

// actionHashPayload is the canonical JSON projection hashed into
// ActionHash: every field that isn't itself a hash, in a fixed key order
// (Go's encoding/json sorts map keys, but this is a struct so field order
// is syntactic, not alphabetic — kept stable for the chain's sake).
type actionHashPayload struct {
	ID             string `json:"id"`
	Type           string `json:"type"`
	PlanID         string `json:"plan_id,omitempty"`
	IntentID       string `json:"intent_id,omitempty"`
	SessionID      string `json:"session_id,omitempty"`
	ParentActionID string `json:"parent_action_id,omitempty"`
	FunctionName   string `json:"function_name,omitempty"`
	Timestamp      int64  `json:"timestamp"`
	Data           any    `json:"data"`
}

// ActionHash computes the content hash of an Action's fields (everything
// except ActionHash/ChainHash themselves).
func ActionHash(a *Action) (string, error) {
	data, err := value.ToJSON(a.Data)
	if err != nil {
		return "", ccoserr.Wrap(ccoserr.KindInternalError, err, "hashing action %s: converting data to JSON", a.ID)
	}
	payload := actionHashPayload{
		ID:             a.ID,
		Type:           string(a.Type),
		PlanID:         a.PlanID,
		IntentID:       a.IntentID,
		SessionID:      a.SessionID,
		ParentActionID: a.ParentActionID,
		FunctionName:   a.FunctionName,
		Timestamp:      a.Timestamp.UnixNano(),
		Data:           data,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", ccoserr.Wrap(ccoserr.KindInternalError, err, "hashing action %s: marshalling payload", a.ID)
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:]), nil
}

// ChainHash computes `SHA256(prevChainHash || actionHash)` (spec §4.E
// "Append"). prevChainHash is "" for the first action in a chain.
func ChainHash(prevChainHash, actionHash string) string {
	h := sha256.New()
	h.Write([]byte(prevChainHash))
	h.Write([]byte(actionHash))
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyChainLink recomputes both hashes for an Action given the previous
// link's chain hash, returning an error describing the first mismatch.
func VerifyChainLink(a *Action, prevChainHash string) error {
	wantActionHash, err := ActionHash(a)
	if err != nil {
		return err
	}
	if wantActionHash != a.ActionHash {
		return ccoserr.New(ccoserr.KindIntegrityError, "action %s: action_hash mismatch (stored %s, recomputed %s)", a.ID, a.ActionHash, wantActionHash)
	}
	wantChainHash := ChainHash(prevChainHash, wantActionHash)
	if wantChainHash != a.ChainHash {
		return ccoserr.New(ccoserr.KindIntegrityError, "action %s: chain_hash mismatch (stored %s, recomputed %s)", a.ID, a.ChainHash, wantChainHash)
	}
	return nil
}
