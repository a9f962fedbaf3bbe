package service

import (
	"github.com/paulmach/orb"
)

// PayloadSummary describes a loaded Payload without its features.
type PayloadSummary struct {
	Type     SourceType  `json:"type" doc:"Source type"`
	Features int         `json:"features" doc:"Number of features"`
	URL      string      `json:"url,omitempty" doc:"Tile or tileset URL"`
	BBox     *[4]float64 `json:"bbox,omitempty" doc:"Bounding box [minLon, minLat, maxLon, maxLat]"`
}

// Summarize reports the size and extent of p.
func Summarize(p *Payload) PayloadSummary {
	if p == nil {
		return PayloadSummary{}
	}
	s := PayloadSummary{Type: p.Type, URL: p.URL}
	if p.Features == nil || len(p.Features.Features) == 0 {
		return s
	}

	s.Features = len(p.Features.Features)
	var bound orb.Bound
	first := true
	for _, f := range p.Features.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		b := f.Geometry.Bound()
		if first {
			bound, first = b, false
			continue
		}
		bound = bound.Union(b)
	}
	if !first {
		s.BBox = &[4]float64{bound.Min.Lon(), bound.Min.Lat(), bound.Max.Lon(), bound.Max.Lat()}
	}
	return s
}
