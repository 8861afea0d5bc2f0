package attribution

import (
	"encoding/json"
	"time"
)

// Keys is the fixed allow-list of marketing identifiers read from the URL.
var Keys = []string{
	"utm_source",
	"utm_medium",
	"utm_campaign",
	"utm_content",
	"utm_term",
	"gclid",
	"fbclid",
	"ttclid",
	"msclkid",
	"li_fat_id",
	"twclid",
	"dclid",
}

const (
	fieldCapturedAt = "captured_at"
	fieldLandingURL = "landing_url"
	fieldReferrer   = "referrer"
	fieldFootprint  = "footprint_id"
)

// Record is one capture of marketing identifiers plus landing metadata.
// It serializes flat so dataLayer consumers can read keys directly.
type Record struct {
	Identifiers map[string]string
	CapturedAt  time.Time
	LandingURL  string
	Referrer    string
	Footprint   string
}

func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Map())
}

func (r *Record) UnmarshalJSON(b []byte) error {
	var raw map[string]string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	r.Identifiers = make(map[string]string)
	for _, k := range Keys {
		if v, ok := raw[k]; ok {
			r.Identifiers[k] = v
		}
	}
	if ts := raw[fieldCapturedAt]; ts != "" {
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return err
		}
		r.CapturedAt = t
	}
	r.LandingURL = raw[fieldLandingURL]
	r.Referrer = raw[fieldReferrer]
	r.Footprint = raw[fieldFootprint]
	return nil
}

// Map flattens the record for dataLayer pushes and log payloads.
func (r Record) Map() map[string]any {
	out := make(map[string]any, len(r.Identifiers)+4)
	for k, v := range r.Identifiers {
		out[k] = v
	}
	if !r.CapturedAt.IsZero() {
		out[fieldCapturedAt] = r.CapturedAt.UTC().Format(time.RFC3339)
	}
	out[fieldLandingURL] = r.LandingURL
	out[fieldReferrer] = r.Referrer
	if r.Footprint != "" {
		out[fieldFootprint] = r.Footprint
	}
	return out
}
