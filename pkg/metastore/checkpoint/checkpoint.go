package checkpoint

import (
	"encoding/json"
	"fmt"
	"maps"
	"time"

	mserrors "github.com/randalmurphal/metastore/pkg/metastore/errors"
)

// TimestampLayout is the time_stamp format written by FormatTimestamp.
// It is fixed width and UTC, so lexical order equals chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z"

// Checkpoint is one progress marker of a job.
type Checkpoint struct {
	// Job identifies the pipeline the checkpoint belongs to.
	Job string `json:"job"`

	// Timestamp orders checkpoints within a job; newer sorts later.
	Timestamp string `json:"time_stamp"`

	// Values is the resume state, persisted as JSON in the checkpoint column.
	Values map[string]string `json:"values"`
}

// New creates a checkpoint for job stamped with the current time.
func New(job string, values map[string]string) Checkpoint {
	return Checkpoint{
		Job:       job,
		Timestamp: FormatTimestamp(time.Now()),
		Values:    maps.Clone(values),
	}
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a time_stamp written by FormatTimestamp.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time_stamp %q: %w", s, err)
	}
	return t, nil
}

// Validate reports whether the checkpoint can be stored.
func (c Checkpoint) Validate() error {
	const op = "validate checkpoint"
	if c.Job == "" {
		return mserrors.InvalidArgument(op, "job", "must not be empty")
	}
	if c.Timestamp == "" {
		return mserrors.InvalidArgument(op, "time_stamp", "must not be empty")
	}
	return nil
}

// Payload serializes Values for the checkpoint column.
func (c Checkpoint) Payload() (string, error) {
	values := c.Values
	if values == nil {
		values = map[string]string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("encode checkpoint payload: %w", err)
	}
	return string(data), nil
}

// Decode rebuilds a checkpoint from its stored columns.
func Decode(job, timestamp, payload string) (Checkpoint, error) {
	cp := Checkpoint{Job: job, Timestamp: timestamp, Values: map[string]string{}}
	if payload == "" {
		return cp, nil
	}
	if err := json.Unmarshal([]byte(payload), &cp.Values); err != nil {
		return Checkpoint{}, fmt.Errorf("decode checkpoint payload for job %q at %s: %w", job, timestamp, err)
	}
	return cp, nil
}
