// Package models defines core data structures for search hits, requests and responses.
package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Hit is one raw search result. Hash and Size identify the content; any field a provider
// sends beyond the named ones is kept in Extra and written back unchanged.
type Hit struct {
	Hash    string
	Size    int64
	Name    string
	Sources int
	// Network is the provider that produced the hit (global, kad, known, library).
	Network string
	Extra   map[string]interface{}
}

// ContentKey is the hash-group key: hash and size concatenated as text.
// "12"+3 and "1"+23 share a key.
func (h *Hit) ContentKey() string {
	return h.Hash + strconv.FormatInt(h.Size, 10)
}

// Clone returns a copy of h with its own Extra map. Cloning nil yields nil.
func (h *Hit) Clone() *Hit {
	if h == nil {
		return nil
	}
	c := *h
	if h.Extra != nil {
		c.Extra = make(map[string]interface{}, len(h.Extra))
		for k, v := range h.Extra {
			c.Extra[k] = v
		}
	}
	return &c
}

var hitFields = map[string]bool{"hash": true, "size": true, "name": true, "sources": true, "network": true}

// MarshalJSON flattens Extra next to the named fields.
func (h Hit) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(h.Extra)+len(hitFields))
	for k, v := range h.Extra {
		out[k] = v
	}
	out["hash"] = h.Hash
	out["size"] = h.Size
	out["name"] = h.Name
	out["sources"] = h.Sources
	if h.Network != "" {
		out["network"] = h.Network
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the named fields and collects every other key into Extra.
func (h *Hit) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*h = Hit{}
	fields := []struct {
		key string
		dst interface{}
	}{
		{"hash", &h.Hash},
		{"size", &h.Size},
		{"name", &h.Name},
		{"sources", &h.Sources},
		{"network", &h.Network},
	}
	for _, f := range fields {
		v, ok := raw[f.key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(v, f.dst); err != nil {
			return fmt.Errorf("failed to decode hit %s: %w", f.key, err)
		}
	}
	for k, v := range raw {
		if hitFields[k] {
			continue
		}
		var value interface{}
		if err := json.Unmarshal(v, &value); err != nil {
			return fmt.Errorf("failed to decode hit %s: %w", k, err)
		}
		if h.Extra == nil {
			h.Extra = make(map[string]interface{})
		}
		h.Extra[k] = value
	}
	return nil
}
