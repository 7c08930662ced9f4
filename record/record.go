package record

import (
	"fmt"
	"strconv"
)

// Raw is a record as it arrives from a remote source, before normalization.
type Raw = map[string]any

// Record is an immutable row of the table. It is never mutated after
// creation, only appended to a view.
type Record struct {
	ID         int64  `json:"id" mapstructure:"id"`
	Title      string `json:"title" mapstructure:"title"`
	Body       string `json:"body" mapstructure:"body"`
	UserID     int64  `json:"userId" mapstructure:"userId"`
	ExtraField string `json:"extraField,omitempty" mapstructure:"extraField"`
}

// Field returns the value for a column key.
func (r Record) Field(key string) (any, bool) {
	switch key {
	case "id":
		return r.ID, true
	case "title":
		return r.Title, true
	case "body":
		return r.Body, true
	case "userId":
		return r.UserID, true
	case "extraField":
		return r.ExtraField, r.ExtraField != ""
	}
	return nil, false
}

// Raw returns the wire representation of the record.
func (r Record) Raw() Raw {
	raw := Raw{
		"id":     r.ID,
		"title":  r.Title,
		"body":   r.Body,
		"userId": r.UserID,
	}
	if r.ExtraField != "" {
		raw["extraField"] = r.ExtraField
	}
	return raw
}

func (r Record) String() string {
	return "record " + strconv.FormatInt(r.ID, 10)
}

// Generate builds a synthetic batch of n records whose ids start at offset+1.
func Generate(offset, n int) []Record {
	if n <= 0 {
		return []Record{}
	}
	rows := make([]Record, 0, n)
	for i := 0; i < n; i++ {
		id := int64(offset + i + 1)
		rows = append(rows, Record{
			ID:     id,
			Title:  fmt.Sprintf("Title %d", id),
			Body:   fmt.Sprintf("Body of record %d", id),
			UserID: id%10 + 1,
		})
	}
	return rows
}
