package edges

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Edge is a directed, optionally labeled connection between two nodes.
// ID is the backing store's identity when it has one.
type Edge struct {
	ID     string `json:"id,omitempty" yaml:"id,omitempty"`
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
	Label  string `json:"label" yaml:"label"`
}

// edgeObject avoids recursing into Edge.UnmarshalJSON.
type edgeObject Edge

// UnmarshalJSON accepts the object form or the [source, target, label?]
// tuple form.
func (e *Edge) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var tuple []string
		if err := json.Unmarshal(data, &tuple); err != nil {
			return fmt.Errorf("edge tuple: %w", err)
		}
		return e.fromTuple(tuple)
	}
	var obj edgeObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("edge object: %w", err)
	}
	*e = Edge(obj)
	return nil
}

// UnmarshalYAML accepts a mapping or a sequence, like UnmarshalJSON.
func (e *Edge) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		var tuple []string
		if err := node.Decode(&tuple); err != nil {
			return fmt.Errorf("edge tuple: %w", err)
		}
		return e.fromTuple(tuple)
	}
	var obj edgeObject
	if err := node.Decode(&obj); err != nil {
		return fmt.Errorf("edge object: %w", err)
	}
	*e = Edge(obj)
	return nil
}

func (e *Edge) fromTuple(tuple []string) error {
	if len(tuple) < 2 || len(tuple) > 3 {
		return fmt.Errorf("edge tuple: want [source, target] or [source, target, label], got %d elements", len(tuple))
	}
	*e = Edge{Source: tuple[0], Target: tuple[1]}
	if len(tuple) == 3 {
		e.Label = tuple[2]
	}
	return nil
}

// Key is the edge's identity before de-duplication: its own ID when set,
// otherwise "{source}-{target}".
func (e Edge) Key() string {
	if e.ID != "" {
		return e.ID
	}
	return e.Source + "-" + e.Target
}
