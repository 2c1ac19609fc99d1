package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/kdag/pkg/edges"
	"github.com/matzehuels/kdag/pkg/errors"
	"github.com/matzehuels/kdag/pkg/geom"
	"github.com/matzehuels/kdag/pkg/layout"
)

// measurements is a recorded renderer state: the viewport, every measured
// node rect and optionally the edges to route. Edges accept both the
// {source, target, label} object and the legacy [source, target] tuple.
type measurements struct {
	Viewport geom.Viewport        `json:"viewport" yaml:"viewport"`
	Rects    map[string]geom.Rect `json:"rects" yaml:"rects"`
	Edges    []edges.Edge         `json:"edges,omitempty" yaml:"edges,omitempty"`
}

// loadMeasurements reads a JSON or YAML measurement file. The format is
// chosen by extension; anything other than .yaml/.yml is parsed as JSON.
func loadMeasurements(path string) (*measurements, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read measurements: %w", err)
	}
	return parseMeasurements(data, filepath.Ext(path))
}

func parseMeasurements(data []byte, ext string) (*measurements, error) {
	var m measurements
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&m); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse YAML measurements")
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&m); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse JSON measurements")
		}
	}
	for id := range m.Rects {
		if strings.TrimSpace(id) == "" {
			return nil, errors.New(errors.ErrCodeInvalidInput, "measurement with empty node id")
		}
	}
	return &m, nil
}

// apply replays the measurements into store in a stable order.
func (m *measurements) apply(store *layout.Store) {
	store.UpdateViewport(m.Viewport.CanvasOrigin, m.Viewport.ScrollOffset)
	ids := make([]string, 0, len(m.Rects))
	for id := range m.Rects {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		store.ReportNodeRect(id, m.Rects[id])
	}
}
