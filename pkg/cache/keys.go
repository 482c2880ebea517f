package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Document kinds for DocumentKey.
const (
	KindMetrics  = "metrics"
	KindFeatures = "features"
)

// ArtifactKeyOpts are the render options that affect an artifact's bytes.
type ArtifactKeyOpts struct {
	Format      string  `json:"format"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Scale       float64 `json:"scale"`
	Rotate      float64 `json:"rotate"`
	Query       string  `json:"query,omitempty"`
	Select      string  `json:"select,omitempty"`
	Hover       string  `json:"hover,omitempty"`
	Lon         float64 `json:"lon"`
	Lat         float64 `json:"lat"`
	Zoom        float64 `json:"zoom"`
	Low         string  `json:"low"`
	High        string  `json:"high"`
	Fallback    string  `json:"fallback"`
	Clamp       bool    `json:"clamp,omitempty"`
	Legend      bool    `json:"legend,omitempty"`
	Results     bool    `json:"results,omitempty"`
	Interactive bool    `json:"interactive,omitempty"`
	PNGScale    float64 `json:"png_scale,omitempty"`
}

// Keyer builds cache keys.
type Keyer interface {
	// DocumentKey returns the key for a raw document fetched from source.
	DocumentKey(kind, source string) string
	// ArtifactKey returns the key for a render of the documents whose
	// combined hash is contentHash.
	ArtifactKey(contentHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer is the unprefixed [Keyer].
type DefaultKeyer struct{}

// NewDefaultKeyer returns a [DefaultKeyer].
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// DocumentKey keeps the source readable so entries are easy to inspect.
func (DefaultKeyer) DocumentKey(kind, source string) string {
	return "doc:" + kind + ":" + source
}

// ArtifactKey hashes the content hash together with opts.
func (DefaultKeyer) ArtifactKey(contentHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", contentHash, opts)
}

type scopedKeyer struct {
	Keyer
	prefix string
}

// NewScopedKeyer prepends prefix to every key built by inner, so one Redis
// instance can hold several deployments or dataset versions:
//
//	staging := NewScopedKeyer(nil, "staging:")
//	key := staging.DocumentKey(KindMetrics, "https://example.com/data.json")
//
// A nil inner means [DefaultKeyer].
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = DefaultKeyer{}
	}
	return scopedKeyer{Keyer: inner, prefix: prefix}
}

func (k scopedKeyer) DocumentKey(kind, source string) string {
	return k.prefix + k.Keyer.DocumentKey(kind, source)
}

func (k scopedKeyer) ArtifactKey(contentHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.Keyer.ArtifactKey(contentHash, opts)
}

// Hash returns the hex SHA-256 of data. It identifies loaded documents and
// seeds artifact keys.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// hashKey returns prefix and the hash of parts joined by a colon. Parts are
// JSON encoded so field boundaries survive: ("ab", "c") and ("a", "bc")
// hash differently.
func hashKey(prefix string, parts ...any) string {
	data, err := json.Marshal(parts)
	if err != nil {
		// NaN and Inf floats do not encode as JSON.
		data = fmt.Appendf(nil, "%#v", parts)
	}
	return prefix + ":" + Hash(data)
}
