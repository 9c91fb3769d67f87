package profile

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/itohio/pedals/pkg/pedal"
)

// CustomsKey is the top-level document key holding the curve presets. No
// channel may use it as a name.
const CustomsKey = "customs"

// ChannelPatch is a partial channel configuration. Every field is optional;
// a nil field leaves the corresponding setting untouched on Apply.
type ChannelPatch struct {
	Min           *int  `json:"min,omitempty" yaml:"min,omitempty"`
	Max           *int  `json:"max,omitempty" yaml:"max,omitempty"`
	DeadzoneStart *int  `json:"dzStart,omitempty" yaml:"dzStart,omitempty"`
	DeadzoneEnd   *int  `json:"dzEnd,omitempty" yaml:"dzEnd,omitempty"`
	Inverted      *bool `json:"inverted,omitempty" yaml:"inverted,omitempty"`
	Smoothing     *int  `json:"smooth,omitempty" yaml:"smooth,omitempty"`
	Ceiling       *int  `json:"ceil,omitempty" yaml:"ceil,omitempty"`
	Curve         []int `json:"curve,omitempty" yaml:"curve,omitempty,flow"`
}

// PatchFrom returns a patch that sets every field to the value in cfg.
func PatchFrom(cfg pedal.Config) *ChannelPatch {
	return &ChannelPatch{
		Min:           ptr(cfg.CalibratedMin),
		Max:           ptr(cfg.CalibratedMax),
		DeadzoneStart: ptr(cfg.DeadzoneStart),
		DeadzoneEnd:   ptr(cfg.DeadzoneEnd),
		Inverted:      ptr(cfg.Inverted),
		Smoothing:     ptr(cfg.Smoothing),
		Ceiling:       ptr(cfg.OutputCeiling),
		Curve:         cfg.Curve.Slice(),
	}
}

// Apply returns cfg with the fields present in p overwritten. Values outside
// their valid range are ignored, as is a curve without exactly
// pedal.CurvePointCount points in 0..100.
func (p *ChannelPatch) Apply(cfg pedal.Config) pedal.Config {
	if p == nil {
		return cfg
	}
	if p.Min != nil {
		cfg.CalibratedMin = *p.Min
	}
	if p.Max != nil {
		cfg.CalibratedMax = *p.Max
	}
	if p.DeadzoneStart != nil && *p.DeadzoneStart >= 0 {
		cfg.DeadzoneStart = *p.DeadzoneStart
	}
	if p.DeadzoneEnd != nil && *p.DeadzoneEnd >= 0 {
		cfg.DeadzoneEnd = *p.DeadzoneEnd
	}
	if p.Inverted != nil {
		cfg.Inverted = *p.Inverted
	}
	if p.Smoothing != nil && inRange(*p.Smoothing, 0, 99) {
		cfg.Smoothing = *p.Smoothing
	}
	if p.Ceiling != nil && inRange(*p.Ceiling, 0, 100) {
		cfg.OutputCeiling = *p.Ceiling
	}
	if c, ok := pedal.CurveFromSlice(p.Curve); ok {
		cfg.Curve = c
	}
	return cfg
}

// Document is the configuration of all channels plus the custom curve presets.
//
// In JSON the channels are top-level objects keyed by channel name next to the
// "customs" array:
//
//	{"gas":{"min":120,"max":3900,"curve":[0,10,...]},"customs":[[...],...]}
type Document struct {
	Channels map[string]*ChannelPatch `yaml:",inline"`
	Customs  [][]int                  `yaml:"customs,omitempty,flow"`
}

// Decode parses a JSON document. Any syntax or type error rejects the whole document.
func Decode(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("failed to parse config document: %w", err)
	}
	return doc, nil
}

// Encode serializes doc as JSON.
func Encode(doc Document) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config document: %w", err)
	}
	return data, nil
}

// MarshalJSON implements json.Marshaler.
func (d Document) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(d.Channels)+1)
	for name, p := range d.Channels {
		if p != nil {
			m[name] = p
		}
	}
	if d.Customs != nil {
		m[CustomsKey] = d.Customs
	}
	return json.Marshal(m)
}

// UnmarshalJSON implements json.Unmarshaler. Top-level values that are not
// objects (other than "customs") are ignored.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	doc := Document{Channels: make(map[string]*ChannelPatch)}
	for key, value := range raw {
		if key == CustomsKey {
			if err := json.Unmarshal(value, &doc.Customs); err != nil {
				return fmt.Errorf("invalid customs: %w", err)
			}
			continue
		}

		trimmed := bytes.TrimSpace(value)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			continue
		}

		var p ChannelPatch
		if err := json.Unmarshal(trimmed, &p); err != nil {
			return fmt.Errorf("invalid channel %q: %w", key, err)
		}
		doc.Channels[key] = &p
	}

	*d = doc
	return nil
}

func ptr[T any](v T) *T {
	return &v
}

func inRange(v, lo, hi int) bool {
	return v >= lo && v <= hi
}
