// Package record parses the raw archive records into the fixed-schema
// projections the sink writes.
//
// Every line is parsed independently: a malformed line yields an error
// that the caller counts and skips, never an aborted stream.
package record

import (
	"github.com/goccy/go-json"

	"github.com/nssanta/bybitarc/internal/errors"
)

// rawDepth mirrors one line of the order book dump:
//
//	{"ts":...,"type":"snapshot","cts":...,"data":{"u":...,"seq":...,"b":[[p,q],...],"a":[[p,q],...]}}
//
// Snapshots carry the full 200-level book; deltas carry changed levels only.
type rawDepth struct {
	TS   int64  `json:"ts"`
	CTS  *int64 `json:"cts"`
	Type string `json:"type"`
	Data struct {
		U    int64           `json:"u"`
		Seq  int64           `json:"seq"`
		Bids json.RawMessage `json:"b"`
		Asks json.RawMessage `json:"a"`
	} `json:"data"`
}

// Depth is the flattened projection of one order book record. The level
// arrays stay serialized as JSON text so the columnar schema is static
// regardless of book depth.
type Depth struct {
	TS   int64  // exchange timestamp, ms
	CTS  *int64 // matching-engine timestamp, ms; absent on old dumps
	Type string // "snapshot" or "delta"
	U    int64  // update id, monotonically assigned
	Seq  int64  // cross-topic sequence number
	Bids string // JSON array of [price, qty] pairs
	Asks string
}

// ParseDepth parses one archive line. Lines missing the required envelope
// fields are rejected the same way lines with broken JSON are.
func ParseDepth(line []byte) (Depth, error) {
	var raw rawDepth
	if err := json.Unmarshal(line, &raw); err != nil {
		return Depth{}, errors.Wrap(err, "parse record")
	}

	if raw.TS == 0 || raw.Type == "" || raw.Data.U == 0 {
		return Depth{}, errors.New("record missing required fields")
	}

	return Depth{
		TS:   raw.TS,
		CTS:  raw.CTS,
		Type: raw.Type,
		U:    raw.Data.U,
		Seq:  raw.Data.Seq,
		Bids: levelsOrEmpty(raw.Data.Bids),
		Asks: levelsOrEmpty(raw.Data.Asks),
	}, nil
}

// levelsOrEmpty keeps the raw JSON array text, substituting an empty
// array when the side is absent (deltas may touch only one side).
func levelsOrEmpty(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return "[]"
	}
	return string(raw)
}
