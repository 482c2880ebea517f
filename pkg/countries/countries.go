package countries

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

var (
	// ErrInvalidRequests is returned when a record's requests field is not a
	// non-negative decimal integer.
	ErrInvalidRequests = errors.New("invalid requests value")

	// ErrMissingCountries is returned when the document lacks countries.country.
	ErrMissingCountries = errors.New("document has no countries.country list")
)

// Metric is one record of the metrics document, kept verbatim.
type Metric struct {
	CountryCode string `json:"countryCode" bson:"country_code"`
	CountryName string `json:"countryName" bson:"country_name"`
	Requests    string `json:"requests" bson:"requests"`
}

// Document mirrors the on-disk layout of the metrics document.
type Document struct {
	Countries struct {
		Country []Metric `json:"country"`
	} `json:"countries"`
}

// Decode reads a metrics document from r and returns its country list.
func Decode(r io.Reader) ([]Metric, error) {
	var raw struct {
		Countries *struct {
			Country []Metric `json:"country"`
		} `json:"countries"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if raw.Countries == nil || raw.Countries.Country == nil {
		return nil, ErrMissingCountries
	}
	return raw.Countries.Country, nil
}

// DecodeFile opens path and decodes it with [Decode].
func DecodeFile(path string) ([]Metric, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f)
}

// Encode writes metrics in the document layout accepted by [Decode].
func Encode(w io.Writer, metrics []Metric) error {
	var doc Document
	doc.Countries.Country = metrics
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// ParseRequests parses the requests text of m as a base-10 integer.
func ParseRequests(m Metric) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(m.Requests), 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s: %w: %q", m.CountryName, ErrInvalidRequests, m.Requests)
	}
	return n, nil
}

// Max returns the largest parsed requests value in metrics, or 0 for an
// empty list. The first unparseable record aborts with an error.
func Max(metrics []Metric) (int64, error) {
	var max int64
	for _, m := range metrics {
		n, err := ParseRequests(m)
		if err != nil {
			return 0, err
		}
		if n > max {
			max = n
		}
	}
	return max, nil
}

// Matches reports whether name contains query, ignoring case.
// An empty query never matches.
func Matches(name, query string) bool {
	if query == "" {
		return false
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(query))
}

// Filter returns the records whose name matches query, in input order.
// An empty query yields an empty (nil) result rather than every record.
func Filter(query string, metrics []Metric) []Metric {
	if query == "" {
		return nil
	}
	q := strings.ToLower(query)
	var out []Metric
	for _, m := range metrics {
		if strings.Contains(strings.ToLower(m.CountryName), q) {
			out = append(out, m)
		}
	}
	return out
}
