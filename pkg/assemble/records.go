package assemble

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// metadataAliases maps service column names, after prefix cleaning, to the
// JSON tags of the regdata metadata types.
var metadataAliases = map[string]string{
	"label_id":               "industry_id",
	"label_code":             "industry_code",
	"label_name":             "industry_name",
	"label_level":            "industry_level",
	"labellevel":             "industry_level",
	"label_source":           "industry_standard",
	"labelsource":            "industry_standard",
	"a_jurisdiction_id":      "jurisdiction_id",
	"jurisdiction_parent_id": "parent_jurisdiction_id",
	"parent_id":              "parent_jurisdiction_id",
	"agency_cluster":         "cluster_id",
	"summary_endpoints":      "summary_endpoint",
	"document_endpoints":     "document_endpoint",
	"label_endpoints":        "label_endpoint",
	"documenttype":           "document_type_id",
	"document_type_name":     "document_type",
	"series_periodicity":     "periodicity",
}

// Canonical returns the metadata column name for a service column.
func Canonical(name string) string {
	name = CleanColumn(name)
	if alias, ok := metadataAliases[name]; ok {
		return alias
	}
	return name
}

// DecodeInto decodes a metadata payload into a slice of T, a struct whose
// json tags name the canonical columns. Values are coerced to the field
// types: numeric strings to ints, 0/1 and "true"/"false" to bools, comma
// separated strings to string slices. Records whose fields cannot be
// coerced are skipped and counted.
func DecodeInto[T any](body []byte) (out []T, skipped int, err error) {
	recs, err := Decode(body)
	if err != nil {
		return nil, 0, err
	}
	fields, err := fieldsOf(reflect.TypeFor[T]())
	if err != nil {
		return nil, 0, err
	}

	out = make([]T, 0, len(recs))
	for _, rec := range recs {
		var item T
		v := reflect.ValueOf(&item).Elem()
		ok := true
		for col, raw := range rec {
			idx, known := fields[Canonical(col)]
			if !known || raw == nil {
				continue
			}
			if err := assign(v.Field(idx), raw); err != nil {
				ok = false
				break
			}
		}
		if !ok {
			skipped++
			continue
		}
		out = append(out, item)
	}
	return out, skipped, nil
}

// DecodeRecords decodes a payload into loosely typed records keyed by
// canonical column names.
func DecodeRecords(body []byte) ([]map[string]any, error) {
	recs, err := Decode(body)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, len(recs))
	for i, rec := range recs {
		m := make(map[string]any, len(rec))
		for k, v := range rec {
			m[Canonical(k)] = plain(v)
		}
		out[i] = m
	}
	return out, nil
}

func fieldsOf(t reflect.Type) (map[string]int, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("decode target %s: want struct", t)
	}
	fields := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		fields[name] = i
	}
	return fields, nil
}

func assign(dst reflect.Value, raw any) error {
	switch dst.Kind() {
	case reflect.Pointer:
		elem := reflect.New(dst.Type().Elem())
		if err := assign(elem.Elem(), raw); err != nil {
			return err
		}
		dst.Set(elem)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, ok := toInt64(raw)
		if !ok {
			return fmt.Errorf("%v: not an integer", raw)
		}
		dst.SetInt(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(toString(raw), 64)
		if err != nil {
			return err
		}
		dst.SetFloat(f)
	case reflect.Bool:
		b, err := toBool(raw)
		if err != nil {
			return err
		}
		dst.SetBool(b)
	case reflect.String:
		dst.SetString(toString(raw))
	case reflect.Slice:
		if dst.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type %s", dst.Type())
		}
		var parts []string
		if items, ok := raw.([]any); ok {
			for _, it := range items {
				parts = append(parts, toString(it))
			}
		} else {
			for _, p := range strings.Split(toString(raw), ",") {
				if p = strings.TrimSpace(p); p != "" {
					parts = append(parts, p)
				}
			}
		}
		s := reflect.MakeSlice(dst.Type(), len(parts), len(parts))
		for i, p := range parts {
			s.Index(i).SetString(p)
		}
		dst.Set(s)
	default:
		return fmt.Errorf("unsupported field type %s", dst.Type())
	}
	return nil
}

func toBool(raw any) (bool, error) {
	if b, ok := raw.(bool); ok {
		return b, nil
	}
	if n, ok := toInt64(raw); ok {
		return n != 0, nil
	}
	return strconv.ParseBool(strings.TrimSpace(toString(raw)))
}

// plain converts json.Number values to int64 or float64.
func plain(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any:
		for k, e := range x {
			x[k] = plain(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = plain(e)
		}
		return x
	}
	return v
}
