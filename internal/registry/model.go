package registry

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Status is the voting state of a registry entry. Transitions happen server-side.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Model is one registry entry as served by the registry API. The console never
// mutates a Model; refreshed collections replace local copies wholesale.
type Model struct {
	ID        string    `json:"model_id"`
	Name      string    `json:"model_name"`
	Task      string    `json:"task"`
	Status    Status    `json:"status"`
	CreatedAt Timestamp `json:"created_at"`
	NFTID     string    `json:"nft_id"`
}

// Timestamp accepts the handful of layouts registry backends emit for created_at.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC1123,
	time.RFC1123Z,
	"2006-01-02",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" || raw == `""` {
		t.Time = time.Time{}
		return nil
	}
	if !strings.HasPrefix(raw, `"`) {
		// epoch seconds (optionally fractional)
		secs, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("created_at: %w", err)
		}
		t.Time = time.Unix(0, int64(secs*float64(time.Second))).UTC()
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("created_at: unrecognised time %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}
