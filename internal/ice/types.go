package ice

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// CriterionValue is one selectable value of a criterion.
type CriterionValue struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Criterion is a named, ordered list of selectable values. Order defines
// the index positions the range filters select against.
type Criterion struct {
	Name        string           `json:"name"`
	DisplayName string           `json:"displayName"`
	Values      []CriterionValue `json:"values"`
}

// ResultPage is one page of report rows. Label identifies the period the
// page belongs to; the server calls it the subheader and it is usually a
// date.
type ResultPage struct {
	Label string
	Rows  [][]string
}

type resultsEnvelope struct {
	Datasets struct {
		Results struct {
			Subheader string          `json:"subheader"`
			Rows      json.RawMessage `json:"rows"`
		} `json:"results"`
	} `json:"datasets"`
}

// decodeRows turns a JSON array of row objects into positional cell
// slices, preserving the field order of each object. Values keep their
// wire text: numbers are not reparsed, null becomes the empty string.
func decodeRows(raw json.RawMessage) ([][]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	if err := expectDelim(dec, '['); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	var rows [][]string
	for dec.More() {
		row, err := decodeRow(dec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", len(rows), err)
		}
		rows = append(rows, row)
	}

	if err := expectDelim(dec, ']'); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return rows, nil
}

func decodeRow(dec *json.Decoder) ([]string, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	var cells []string
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("failed to read field name: %w", err)
		}

		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to read field value: %w", err)
		}
		switch v := tok.(type) {
		case nil:
			cells = append(cells, "")
		case string:
			cells = append(cells, v)
		case json.Number:
			cells = append(cells, v.String())
		case bool:
			cells = append(cells, strconv.FormatBool(v))
		default:
			return nil, fmt.Errorf("field %d is not a scalar", len(cells))
		}
	}

	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return cells, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}
