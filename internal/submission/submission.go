// Package submission defines the contact-form entry shared by the validator,
// the store and the notifier.
package submission

import (
	"fmt"
	"strings"
	"time"
)

const (
	// TimestampLayout is the persisted timestamp form: ISO-8601 with
	// microseconds and a numeric offset.
	TimestampLayout = "2006-01-02T15:04:05.000000-07:00"
	// IDLayout is the date/time prefix of record identifiers; the microsecond
	// component is appended separately since Go layouts only recognise
	// fractional seconds after a period.
	IDLayout = "20060102_150405"
	// DisplayLayout is the human readable form used in notifications.
	DisplayLayout = "January 02, 2006 at 03:04 PM IST"

	// UnknownOrigin is recorded when the client address cannot be determined.
	UnknownOrigin = "Unknown"
)

// IST is the fixed UTC+5:30 offset used for timestamps regardless of server locale.
var IST = time.FixedZone("IST", 5*60*60+30*60)

// Submission is a validated contact-form entry.
type Submission struct {
	Name      string
	Email     string
	Subject   string
	Message   string
	Timestamp time.Time
	Origin    string
}

// Record is the flat field→value form written to storage.
type Record struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	IPAddress string `json:"ip_address"`
}

// Record converts the submission to its persisted form.
func (s Submission) Record() Record {
	origin := strings.TrimSpace(s.Origin)
	if origin == "" {
		origin = UnknownOrigin
	}
	return Record{
		Name:      s.Name,
		Email:     s.Email,
		Subject:   s.Subject,
		Message:   s.Message,
		Timestamp: FormatTimestamp(s.Timestamp),
		IPAddress: origin,
	}
}

// ID derives the record identifier from the acceptance time.
func (s Submission) ID() string {
	t := s.Timestamp.In(IST)
	return fmt.Sprintf("%s_%06d", t.Format(IDLayout), t.Nanosecond()/int(time.Microsecond))
}

// FormatTimestamp renders t in IST using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.In(IST).Format(TimestampLayout)
}

// ParseTimestamp parses a stored timestamp. RFC 3339 values without
// microseconds are accepted too.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	t, err := time.Parse(TimestampLayout, raw)
	if err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, raw)
}

// DisplayTime converts a stored timestamp into the long IST form. Values that
// cannot be parsed are returned unchanged.
func DisplayTime(raw string) string {
	t, err := ParseTimestamp(raw)
	if err != nil {
		return raw
	}
	return t.In(IST).Format(DisplayLayout)
}
