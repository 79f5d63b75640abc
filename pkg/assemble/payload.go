package assemble

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/QuantGov/regcensus-api-go/pkg/regerr"
	"github.com/QuantGov/regcensus-api-go/pkg/transport"
)

const envelopeSchemaURL = "https://api.quantgov.org/schemas/records.schema.json"

// envelopeSchema accepts a list of flat records. Nested values are allowed
// and carried through as strings.
const envelopeSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": ["array", "null"],
  "items": { "type": "object" }
}`

var envelope = mustCompile(envelopeSchemaURL, envelopeSchema)

func mustCompile(url, schema string) *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(url, strings.NewReader(schema)); err != nil {
		panic(fmt.Sprintf("payload schema load failed: %v", err))
	}
	return c.MustCompile(url)
}

// Record is one decoded service record with cleaned column names.
type Record map[string]any

// Decode parses a service payload into records. The service encodes its
// JSON array a second time as a JSON string; both forms are accepted. An
// error object ({"message": ...} or {"errorMessage": ...}) is returned as a
// *regerr.TransportError carrying the message unmodified.
func Decode(body []byte) ([]Record, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}

	doc, err := decodeJSON(body)
	if err != nil {
		return nil, &regerr.TransportError{Message: "malformed payload", Err: err}
	}
	if s, ok := doc.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, nil
		}
		if doc, err = decodeJSON([]byte(s)); err != nil {
			return nil, &regerr.TransportError{Message: "malformed payload", Err: err}
		}
	}

	if obj, ok := doc.(map[string]any); ok {
		for _, key := range []string{"message", "errorMessage"} {
			if msg, ok := obj[key]; ok {
				return nil, &regerr.TransportError{Message: fmt.Sprint(msg)}
			}
		}
	}
	if err := envelope.Validate(doc); err != nil {
		return nil, &regerr.TransportError{Message: "unexpected payload shape", Err: err}
	}

	items, _ := doc.([]any)
	out := make([]Record, 0, len(items))
	for _, item := range items {
		raw := item.(map[string]any)
		rec := make(Record, len(raw))
		for k, v := range raw {
			rec[CleanColumn(k)] = v
		}
		out = append(out, rec)
	}
	return out, nil
}

// Count returns the number of records in a payload. It satisfies
// transport.RecordCounter.
func Count(body []byte) (int, error) {
	recs, err := Decode(body)
	return len(recs), err
}

var _ transport.RecordCounter = Count

func decodeJSON(b []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON value")
	}
	return v, nil
}

// CleanColumn strips the service's view prefixes ("v_", "sv_", ...) from a
// column name, keeping the part after the last "v_".
func CleanColumn(name string) string {
	if i := strings.LastIndex(name, "v_"); i >= 0 {
		return name[i+2:]
	}
	return name
}
