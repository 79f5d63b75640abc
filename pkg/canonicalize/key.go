package canonicalize

import (
	"net/url"
	"sort"
)

// requestShape is the identity of a GET request: the partition index and
// parameter order do not take part.
type requestShape struct {
	Method string              `json:"method"`
	Path   string              `json:"path"`
	Params map[string][]string `json:"params"`
}

// RequestKey returns a stable key for a request. Parameters are compared
// as sets per name, so "series=2&series=1" and "series=1&series=2" share a key.
func RequestKey(method, path string, params url.Values) (string, error) {
	shape := requestShape{Method: method, Path: path, Params: make(map[string][]string, len(params))}
	for k, vs := range params {
		sorted := append([]string(nil), vs...)
		sort.Strings(sorted)
		shape.Params[k] = sorted
	}
	h, err := CanonicalHash(shape)
	if err != nil {
		return "", err
	}
	return "sha256:" + h, nil
}
