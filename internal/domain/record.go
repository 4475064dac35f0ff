package domain

import "time"

// DateField is the key the ingestion timestamp is stored under.
const DateField = "Date"

// Credentials is the login payload sent to the cloud API as-is.
type Credentials struct {
	UserName string `json:"user_name" yaml:"user_name"`
	Password string `json:"password" yaml:"password"`
}

// Record is one node parameter snapshot plus its ingestion timestamp.
// Keys are parameter names, values are whatever the API returned.
type Record map[string]any

// BuildRecord stamps snapshot with now under DateField and returns it.
// The snapshot map itself is extended; other keys are left untouched.
func BuildRecord(snapshot map[string]any, now time.Time) Record {
	if snapshot == nil {
		snapshot = make(map[string]any, 1)
	}
	snapshot[DateField] = EpochSeconds(now)
	return Record(snapshot)
}

// EpochSeconds returns t as fractional seconds since the Unix epoch.
func EpochSeconds(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/float64(time.Second)
}

// Date returns the ingestion timestamp of the record, if present.
func (r Record) Date() (float64, bool) {
	v, ok := r[DateField]
	if !ok {
		return 0, false
	}
	switch d := v.(type) {
	case float64:
		return d, true
	case int64:
		return float64(d), true
	case int32:
		return float64(d), true
	case int:
		return float64(d), true
	}
	return 0, false
}

type RecordConsumer interface {
	Process(records []Record) error
}
