package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// GenesisHash is the previous hash of the first block.
var GenesisHash = strings.Repeat("0", 64)

// Event is a state change submitted by a domain service.
type Event struct {
	Type    string
	Creator string
	Ref     string // index of the record the event is about
	Payload interface{}
}

// Block is an Event once it is appended to the ledger.
type Block struct {
	Height   uint64          `json:"height"`
	Time     time.Time       `json:"time"` // UTC
	Type     string          `json:"type"`
	Creator  string          `json:"creator"`
	Ref      string          `json:"ref"`
	Payload  json.RawMessage `json:"payload"`
	PrevHash string          `json:"prev_hash"`
	Hash     string          `json:"hash"`
}

// ComputeHash returns the hash of the block content, ignoring the Hash field itself.
func (b Block) ComputeHash() string {
	h := sha256.New()
	for _, part := range []string{
		strconv.FormatUint(b.Height, 10),
		b.Time.UTC().Format(time.RFC3339Nano),
		b.Type,
		b.Creator,
		b.Ref,
		string(b.Payload),
		b.PrevHash,
	} {
		h.Write([]byte(part))
		h.Write([]byte{'|'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Status summarises the ledger head for polling clients.
type Status struct {
	Height      uint64    `json:"height"`
	Hash        string    `json:"hash"`
	Time        time.Time `json:"time"`
	Empty       bool      `json:"empty"`
	Subscribers int       `json:"subscribers"`
}

// VerifyResult is the outcome of a full ledger verification.
type VerifyResult struct {
	Valid     bool   `json:"valid"`
	Height    uint64 `json:"height"`
	BadHeight uint64 `json:"bad_height,omitempty"`
	Reason    string `json:"reason,omitempty"`
}
