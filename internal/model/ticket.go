package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// TicketBucket is the coarse price tier derived from an average ticket.
type TicketBucket string

const (
	TicketLow  TicketBucket = "low"
	TicketMid  TicketBucket = "mid"
	TicketHigh TicketBucket = "high"
)

// Ticket breakpoints, in local currency units.
const (
	lowTicketMax = 7000
	midTicketMax = 15000
)

// ParseTicketBucket returns the bucket named by s, ignoring case and
// surrounding space.
func ParseTicketBucket(s string) (TicketBucket, bool) {
	switch b := TicketBucket(strings.ToLower(strings.TrimSpace(s))); b {
	case TicketLow, TicketMid, TicketHigh:
		return b, true
	default:
		return "", false
	}
}

// AvgTicket is either a numeric average ticket or a bucket label. The zero
// value means "not provided".
type AvgTicket struct {
	Amount *float64
	Label  string
}

// TicketAmount returns an AvgTicket holding a number.
func TicketAmount(v float64) AvgTicket {
	return AvgTicket{Amount: &v}
}

// TicketLabel returns an AvgTicket holding a label.
func TicketLabel(s string) AvgTicket {
	return AvgTicket{Label: s}
}

// ParseAvgTicket interprets s as a number when it parses as one and as a
// label otherwise. An empty string is "not provided".
func ParseAvgTicket(s string) AvgTicket {
	s = strings.TrimSpace(s)
	if s == "" {
		return AvgTicket{}
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return TicketAmount(v)
	}
	return TicketLabel(s)
}

// IsZero reports whether no ticket was provided.
func (t AvgTicket) IsZero() bool {
	return t.Amount == nil && t.Label == ""
}

// Validate checks the ticket is a finite non-negative number or a known label.
func (t AvgTicket) Validate() error {
	switch {
	case t.Amount != nil:
		v := *t.Amount
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return eris.New("avgTicket must be a finite non-negative number")
		}
	case t.Label != "":
		if _, ok := ParseTicketBucket(t.Label); !ok {
			return eris.Errorf("avgTicket label %q must be one of low, mid, high", t.Label)
		}
	}
	return nil
}

// Bucket derives the ticket bucket: <=7000 low, <=15000 mid, above that
// high. Labels map to themselves. The second result is false when no bucket
// can be derived.
func (t AvgTicket) Bucket() (TicketBucket, bool) {
	switch {
	case t.Amount != nil:
		v := *t.Amount
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return "", false
		}
		if v <= lowTicketMax {
			return TicketLow, true
		}
		if v <= midTicketMax {
			return TicketMid, true
		}
		return TicketHigh, true
	case t.Label != "":
		return ParseTicketBucket(t.Label)
	default:
		return "", false
	}
}

// MarshalJSON re-emits the ticket in the form it was given.
func (t AvgTicket) MarshalJSON() ([]byte, error) {
	switch {
	case t.Amount != nil:
		return json.Marshal(*t.Amount)
	case t.Label != "":
		return json.Marshal(t.Label)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts a number, a string or null.
func (t *AvgTicket) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*t = AvgTicket{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return eris.Wrap(err, "model: decode avgTicket")
		}
		t.Label = s
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return eris.Wrap(err, "model: avgTicket must be a number or a string")
	}
	t.Amount = &v
	return nil
}
