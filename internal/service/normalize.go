package service

import (
	"encoding/json"
	"strings"
)

// NormalizeSource converts a caller supplied source into a SourceDescriptor.
//
// Strings starting with MockScheme become mock sources, any other string a
// url source. Descriptors, and maps whose "type" is a known SourceType, pass
// through. Everything else is treated as inline GeoJSON. No input is rejected
// here; the DataSource constructor validates.
func NormalizeSource(src any) SourceDescriptor {
	switch v := src.(type) {
	case SourceDescriptor:
		return v
	case *SourceDescriptor:
		if v != nil {
			return *v
		}
	case string:
		if strings.HasPrefix(v, MockScheme) {
			return SourceDescriptor{Type: SourceMock, Data: v}
		}
		return SourceDescriptor{Type: SourceURL, URL: v}
	case map[string]any:
		if t, ok := v["type"].(string); ok && SourceType(t).Known() {
			if sd, ok := decodeDescriptor(v); ok {
				return sd
			}
		}
	}
	return SourceDescriptor{Type: SourceGeoJSON, Data: src}
}

func decodeDescriptor(m map[string]any) (SourceDescriptor, bool) {
	raw, err := json.Marshal(m)
	if err != nil {
		return SourceDescriptor{}, false
	}
	var sd SourceDescriptor
	if err := json.Unmarshal(raw, &sd); err != nil {
		return SourceDescriptor{}, false
	}
	return sd, true
}
