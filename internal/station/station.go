// Package station provides the validated broadcast-station record type.
package station

import (
	"fmt"
	"strings"
)

// Service identifies which FCC feed a record came from.
type Service string

const (
	ServiceFM Service = "FM"
	ServiceAM Service = "AM"
)

// Valid reports whether s is one of the two known services.
func (s Service) Valid() bool {
	return s == ServiceFM || s == ServiceAM
}

// Station is one validated broadcast-station record parsed from an FCC
// pipe-delimited line. Optional numeric attributes are pointers so that
// "absent" and "zero" stay distinguishable all the way into storage.
type Station struct {
	CallSign   string   `json:"call_sign"`
	Frequency  float64  `json:"frequency"` // MHz, after unit normalization.
	Service    Service  `json:"service_type"`
	City       string   `json:"city"`
	State      string   `json:"state"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	PowerWatts *float64 `json:"power_watts,omitempty"`
	Licensee   string   `json:"licensee,omitempty"`
	FacilityID string   `json:"facility_id,omitempty"`
	Status     string   `json:"status,omitempty"`
	Genre      string   `json:"genre,omitempty"`
}

// DataSource returns the source tag stored alongside the record,
// e.g. "FCC_FM".
func (s *Station) DataSource() string {
	return "FCC_" + string(s.Service)
}

// Validate checks the invariants of a fully assembled record. A station that
// fails validation must be discarded, never stored partially.
//
// The upstream feed uses a literal "-" for vacant allocations; that is a
// valid call sign here, not a missing one.
func (s *Station) Validate() error {
	if strings.TrimSpace(s.CallSign) == "" {
		return fmt.Errorf("call sign is empty")
	}
	if s.Frequency <= 0 {
		return fmt.Errorf("frequency %g is not positive", s.Frequency)
	}
	if s.Frequency < MinFrequencyMHz || s.Frequency > MaxFrequencyMHz {
		return fmt.Errorf("frequency %g MHz outside [%g, %g]", s.Frequency, MinFrequencyMHz, MaxFrequencyMHz)
	}
	if !s.Service.Valid() {
		return fmt.Errorf("service type %q is not FM or AM", s.Service)
	}
	if len(s.State) > 2 {
		return fmt.Errorf("state %q longer than 2 characters", s.State)
	}
	if s.Latitude != nil && (*s.Latitude < -90 || *s.Latitude > 90) {
		return fmt.Errorf("latitude %g outside [-90, 90]", *s.Latitude)
	}
	if s.Longitude != nil && (*s.Longitude < -180 || *s.Longitude > 180) {
		return fmt.Errorf("longitude %g outside [-180, 180]", *s.Longitude)
	}
	if s.PowerWatts != nil && *s.PowerWatts < 0 {
		return fmt.Errorf("power %g watts is negative", *s.PowerWatts)
	}
	return nil
}

// Plausibility bounds for a post-conversion frequency in MHz. Wide enough for
// both bands: AM carriers land in [0.53, 1.7] after kHz conversion, FM in
// [88.1, 107.9].
const (
	MinFrequencyMHz = 0.53
	MaxFrequencyMHz = 107.9
)
