package transform

import (
	"errors"

	"github.com/mitchellh/mapstructure"

	"github.com/fulldump/lazytable/record"
)

// Mapper turns one raw item into a display record.
type Mapper func(raw record.Raw) (record.Record, error)

// Normalize keeps id, title, body and userId. Numeric fields are accepted as
// numbers or numeric strings.
func Normalize(raw record.Raw) (record.Record, error) {

	r := record.Record{}

	if _, exists := raw["id"]; !exists {
		return r, errors.New("field 'id' is mandatory")
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &r,
	})
	if err != nil {
		return r, err
	}

	err = decoder.Decode(raw)
	if err != nil {
		return r, err
	}

	return r, nil
}

// Annotate normalizes and marks the record as processed.
func Annotate(raw record.Raw) (record.Record, error) {
	r, err := Normalize(raw)
	if err != nil {
		return r, err
	}
	r.ExtraField = "Processed"
	return r, nil
}
