// Package input reads record and document files and checks them before
// anything is sent.
//
// Files are YAML. Field maps keep their order from the file, so request
// bodies list fields the way the operator wrote them.
package input

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/clubsync/internal/ir"
)

// FromNode converts a YAML node to a Value.
//
// Integers become Int and other numbers Decimal, using the literal text so
// 19.90 keeps its scale. Unquoted dates become Date. Floats never appear.
func FromNode(n *yaml.Node) (ir.Value, error) {
	switch n.Kind {
	case 0:
		return ir.Null{}, nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return ir.Null{}, nil
		}
		return FromNode(n.Content[0])
	case yaml.AliasNode:
		return FromNode(n.Alias)
	case yaml.MappingNode:
		return objectFromNode(n)
	case yaml.SequenceNode:
		arr := make(ir.Array, 0, len(n.Content))
		for i, item := range n.Content {
			v, err := FromNode(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr = append(arr, v)
		}
		return arr, nil
	case yaml.ScalarNode:
		return scalarFromNode(n)
	}
	return nil, fmt.Errorf("line %d: unsupported node kind %d", n.Line, n.Kind)
}

// ObjectFromNode converts a mapping node. A missing node yields an empty
// object.
func ObjectFromNode(n *yaml.Node) (*ir.Object, error) {
	v, err := FromNode(n)
	if err != nil {
		return nil, err
	}
	switch obj := v.(type) {
	case *ir.Object:
		return obj, nil
	case ir.Null:
		return ir.NewObject(), nil
	}
	return nil, fmt.Errorf("line %d: expected a mapping", n.Line)
}

func objectFromNode(n *yaml.Node) (*ir.Object, error) {
	obj := ir.NewObject()
	for i := 0; i+1 < len(n.Content); i += 2 {
		keyNode, valNode := n.Content[i], n.Content[i+1]
		if keyNode.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: mapping key must be a scalar", keyNode.Line)
		}
		if keyNode.Tag == "!!merge" {
			return nil, fmt.Errorf("line %d: merge keys are not supported", keyNode.Line)
		}
		v, err := FromNode(valNode)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", keyNode.Value, err)
		}
		obj.Set(keyNode.Value, v)
	}
	return obj, nil
}

func scalarFromNode(n *yaml.Node) (ir.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return ir.Null{}, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return ir.Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return ir.Int(i), nil
	case "!!float":
		d, err := ir.ParseDecimal(n.Value)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return d, nil
	case "!!timestamp":
		if d, err := ir.ParseDate(n.Value); err == nil {
			return d, nil
		}
		return ir.String(n.Value), nil
	case "!!str":
		return ir.String(n.Value), nil
	}
	return nil, fmt.Errorf("line %d: unsupported tag %s", n.Line, n.ShortTag())
}
