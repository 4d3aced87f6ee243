package model

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// TimerRecord is one finished timer session. Records are append-only and
// identified by (User, Timestamp).
type TimerRecord struct {
	Timestamp     string `json:"timestamp"`
	User          string `json:"user"`
	TotalSeconds  int    `json:"totalSeconds"`
	FormattedTime string `json:"formattedTime"`
	LastUpdated   string `json:"lastUpdated"`
}

// RecordKey identifies a TimerRecord.
type RecordKey struct {
	User      string
	Timestamp string
}

func (r TimerRecord) Key() RecordKey {
	return RecordKey{User: r.User, Timestamp: r.Timestamp}
}

// NewTimerRecord builds a record for a session that ended at now.
func NewTimerRecord(user string, totalSeconds int, now time.Time) TimerRecord {
	if totalSeconds < 0 {
		totalSeconds = 0
	}
	stamp := now.UTC().Format(time.RFC3339)
	return TimerRecord{
		Timestamp:     stamp,
		User:          user,
		TotalSeconds:  totalSeconds,
		FormattedTime: FormatDuration(totalSeconds),
		LastUpdated:   stamp,
	}
}

// FormatDuration renders seconds as HH:MM:SS. Hours are not wrapped at 24.
func FormatDuration(totalSeconds int) string {
	if totalSeconds < 0 {
		totalSeconds = 0
	}
	h := totalSeconds / 3600
	m := (totalSeconds % 3600) / 60
	s := totalSeconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// ParsedTimestamp returns the record timestamp as a time.Time.
func (r TimerRecord) ParsedTimestamp() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, r.Timestamp)
}

// DecodeRecords reads a stream of JSON records (one object after another,
// as produced by json.Encoder) from r.
func DecodeRecords(r io.Reader) ([]TimerRecord, error) {
	var records []TimerRecord
	decoder := json.NewDecoder(r)
	for {
		var rec TimerRecord
		if err := decoder.Decode(&rec); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("failed to decode record json: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}
