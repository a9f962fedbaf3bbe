package service

import (
	"fmt"
	"math"
)

// Validators shared by the DataSource and Layer constructors.

func checkSourceType(desc SourceDescriptor, want SourceType) error {
	if desc.Type != want {
		return &ConfigurationError{
			Field:  "type",
			Reason: fmt.Sprintf("expected %s, got %q", want, desc.Type),
		}
	}
	return nil
}

func requireURL(desc SourceDescriptor) error {
	if desc.URL == "" {
		return missingField("url")
	}
	return nil
}

func validateOpacity(v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return &ValidationError{Field: "opacity", Value: v, Reason: "must be within [0, 1]"}
	}
	return nil
}

func validateZoomRange(minZoom, maxZoom *float64) error {
	for _, z := range []struct {
		field string
		v     *float64
	}{{"minZoom", minZoom}, {"maxZoom", maxZoom}} {
		if z.v != nil && (math.IsNaN(*z.v) || *z.v < 0) {
			return &ValidationError{Field: z.field, Value: *z.v, Reason: "must be a non-negative number"}
		}
	}
	if minZoom != nil && maxZoom != nil && *minZoom > *maxZoom {
		return &ValidationError{Field: "minZoom", Value: *minZoom, Reason: fmt.Sprintf("exceeds maxZoom %v", *maxZoom)}
	}
	return nil
}

func validateLayerDescriptor(desc LayerDescriptor) error {
	if desc.ID == "" {
		return missingField("id")
	}
	if desc.Type == "" {
		return missingField("type")
	}
	if desc.Source == nil && desc.SourceID == "" {
		return missingField("source")
	}
	if desc.Opacity != nil {
		if err := validateOpacity(*desc.Opacity); err != nil {
			return err
		}
	}
	return validateZoomRange(desc.MinZoom, desc.MaxZoom)
}
