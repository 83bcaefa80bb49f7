// Package catalog holds the activity catalog as served by the activities API.
//
// A Catalog is an ordered, read-only snapshot: activities iterate in the order
// the server listed them, and the whole catalog is replaced on every load.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrDuplicateActivity is returned by Decode when an activity name appears twice.
var ErrDuplicateActivity = errors.New("duplicate activity")

// Activity is a named event with a capacity and a roster of registered emails.
type Activity struct {
	Name            string   `json:"-"`
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants int      `json:"max_participants"`
	Participants    []string `json:"participants"`
}

// Filled returns the number of registered participants.
func (a Activity) Filled() int {
	return len(a.Participants)
}

// SpotsRemaining returns MaxParticipants minus the participant count.
// The API does not enforce capacity, so the result can be negative.
func (a Activity) SpotsRemaining() int {
	return a.MaxParticipants - len(a.Participants)
}

// Catalog maps activity names to activities, preserving server order.
type Catalog struct {
	names      []string
	activities map[string]Activity
}

// New builds a catalog from activities in the given order.
// Activity names must be unique.
func New(activities ...Activity) (*Catalog, error) {
	c := &Catalog{
		names:      make([]string, 0, len(activities)),
		activities: make(map[string]Activity, len(activities)),
	}
	for _, a := range activities {
		if err := c.add(a); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) add(a Activity) error {
	if _, ok := c.activities[a.Name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateActivity, a.Name)
	}
	if a.Participants == nil {
		a.Participants = []string{}
	}
	c.names = append(c.names, a.Name)
	c.activities[a.Name] = a
	return nil
}

// Len returns the number of activities.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.names)
}

// Empty reports whether the catalog has no activities.
func (c *Catalog) Empty() bool {
	return c.Len() == 0
}

// Names returns activity names in catalog order.
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, len(c.names))
	copy(names, c.names)
	return names
}

// Get returns the named activity.
func (c *Catalog) Get(name string) (Activity, bool) {
	if c == nil {
		return Activity{}, false
	}
	a, ok := c.activities[name]
	return a, ok
}

// All returns the activities in catalog order.
func (c *Catalog) All() []Activity {
	if c == nil {
		return nil
	}
	all := make([]Activity, 0, len(c.names))
	for _, name := range c.names {
		all = append(all, c.activities[name])
	}
	return all
}

// MarshalJSON encodes the catalog as a JSON object keyed by name, in catalog order.
func (c *Catalog) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, a := range c.All() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(a.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(a)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keyed by activity name, keeping key order.
func (c *Catalog) UnmarshalJSON(data []byte) error {
	decoded, err := Decode(bytes.NewReader(data))
	if err != nil {
		return err
	}
	*c = *decoded
	return nil
}

// Decode reads a catalog from r. The input must be a single JSON object whose
// keys are activity names; the key order of the object is kept.
func Decode(r io.Reader) (*Catalog, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("catalog must be a JSON object, got %v", tok)
	}

	c, _ := New()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("reading activity name: %w", err)
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("activity name must be a string, got %v", tok)
		}

		var a Activity
		if err := dec.Decode(&a); err != nil {
			return nil, fmt.Errorf("decoding activity %q: %w", name, err)
		}
		a.Name = name
		if err := c.add(a); err != nil {
			return nil, err
		}
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("reading end of catalog: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after catalog")
	}
	return c, nil
}
