package time

import (
	"encoding/json"
	"errors"
	"time"
)

// FromMilli converts epoch milliseconds to a UTC time.
func FromMilli(milli int64) time.Time {
	return time.UnixMilli(milli).UTC()
}

// ToMilli converts a time to epoch milliseconds.
func ToMilli(t time.Time) int64 {
	return t.UnixMilli()
}

// Day returns the UTC calendar day hash of the given time.
func Day(t time.Time) int64 {
	return NewHash(24 * time.Hour).Do(t)
}

// Hash is a time hash helper
type Hash struct {
	duration int64
}

// NewHash creates a new time hash for the given duration.
func NewHash(duration time.Duration) Hash {
	return Hash{duration: int64(duration.Seconds())}
}

// Do converts the time to the hash.
func (h Hash) Do(t time.Time) int64 {
	return t.Unix() / h.duration
}

// Duration is a json friendly duration, accepting either nanoseconds or a duration string.
type Duration struct {
	time.Duration
}

// Of wraps the given duration.
func Of(d time.Duration) Duration {
	return Duration{Duration: d}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		var err error
		d.Duration, err = time.ParseDuration(value)
		if err != nil {
			return err
		}
		return nil
	default:
		return errors.New("invalid duration")
	}
}
