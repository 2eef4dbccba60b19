package ast

import (
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
)

// ErrUnknownKind is returned when a node carries a kind discriminator the
// client does not model.
var ErrUnknownKind = errors.New("unknown node kind")

type rawName struct {
	Value string `json:"value"`
}

type rawNamedType struct {
	Name *rawName `json:"name"`
}

type rawNode struct {
	Kind          string            `json:"kind"`
	Operation     string            `json:"operation"`
	Name          *rawName          `json:"name"`
	Alias         *rawName          `json:"alias"`
	TypeCondition *rawNamedType     `json:"typeCondition"`
	SelectionSet  *rawSelectionSet  `json:"selectionSet"`
	Arguments     []rawArgument     `json:"arguments"`
	Value         json.RawMessage   `json:"value"`
	Values        []json.RawMessage `json:"values"`
	Fields        []rawArgument     `json:"fields"`
}

type rawSelectionSet struct {
	Selections []json.RawMessage `json:"selections"`
}

type rawArgument struct {
	Name  *rawName        `json:"name"`
	Value json.RawMessage `json:"value"`
}

type rawDocument struct {
	Kind        string            `json:"kind"`
	Definitions []json.RawMessage `json:"definitions"`
	Loc         *struct {
		Start  int `json:"start"`
		End    int `json:"end"`
		Source *struct {
			Body string `json:"body"`
			Name string `json:"name"`
		} `json:"source"`
	} `json:"loc"`
}

// UnmarshalJSON decodes a graphql-js style document tree.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Kind != "" && raw.Kind != KindDocument {
		return fmt.Errorf("document: %w %q", ErrUnknownKind, raw.Kind)
	}

	doc := Document{}
	if raw.Loc != nil {
		doc.Loc = &Location{Start: raw.Loc.Start, End: raw.Loc.End}
		if raw.Loc.Source != nil {
			doc.Loc.Source = &Source{Body: raw.Loc.Source.Body, Name: raw.Loc.Source.Name}
		}
	}
	for i, msg := range raw.Definitions {
		def, err := decodeDefinition(msg)
		if err != nil {
			return fmt.Errorf("definitions[%d]: %w", i, err)
		}
		doc.Definitions = append(doc.Definitions, def)
	}
	*d = doc
	return nil
}

func decodeDefinition(msg json.RawMessage) (Definition, error) {
	var n rawNode
	if err := json.Unmarshal(msg, &n); err != nil {
		return nil, err
	}
	set, err := decodeSelectionSet(n.SelectionSet)
	if err != nil {
		return nil, err
	}
	switch n.Kind {
	case KindOperationDefinition:
		op := n.Operation
		if op == "" {
			op = OperationQuery
		}
		return &OperationDefinition{Operation: op, Name: n.Name.value(), SelectionSet: set}, nil
	case KindFragmentDefinition:
		return &FragmentDefinition{Name: n.Name.value(), TypeCondition: n.TypeCondition.value(), SelectionSet: set}, nil
	default:
		return nil, fmt.Errorf("definition: %w %q", ErrUnknownKind, n.Kind)
	}
}

func decodeSelectionSet(raw *rawSelectionSet) (*SelectionSet, error) {
	if raw == nil {
		return nil, nil
	}
	set := &SelectionSet{Selections: make([]Selection, 0, len(raw.Selections))}
	for i, msg := range raw.Selections {
		sel, err := decodeSelection(msg)
		if err != nil {
			return nil, fmt.Errorf("selections[%d]: %w", i, err)
		}
		set.Selections = append(set.Selections, sel)
	}
	return set, nil
}

func decodeSelection(msg json.RawMessage) (Selection, error) {
	var n rawNode
	if err := json.Unmarshal(msg, &n); err != nil {
		return nil, err
	}
	switch n.Kind {
	case KindFragmentSpread:
		return &FragmentSpread{Name: n.Name.value()}, nil
	case KindField, KindInlineFragment:
	default:
		return nil, fmt.Errorf("selection: %w %q", ErrUnknownKind, n.Kind)
	}

	set, err := decodeSelectionSet(n.SelectionSet)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", n.Name.value(), err)
	}
	if n.Kind == KindInlineFragment {
		return &InlineFragment{TypeCondition: n.TypeCondition.value(), SelectionSet: set}, nil
	}

	field := &Field{Alias: n.Alias.value(), Name: n.Name.value(), SelectionSet: set}
	for _, a := range n.Arguments {
		arg, err := decodeArgument(a)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field.Name, err)
		}
		field.Arguments = append(field.Arguments, arg)
	}
	return field, nil
}

func decodeArgument(a rawArgument) (*Argument, error) {
	v, err := decodeValue(a.Value)
	if err != nil {
		return nil, fmt.Errorf("argument %s: %w", a.Name.value(), err)
	}
	return &Argument{Name: a.Name.value(), Value: v}, nil
}

func decodeValue(msg json.RawMessage) (Value, error) {
	var n rawNode
	if err := json.Unmarshal(msg, &n); err != nil {
		return nil, err
	}
	switch n.Kind {
	case KindStringValue:
		s, err := literal(n.Value)
		return &StringValue{Value: s}, err
	case KindIntValue:
		s, err := literal(n.Value)
		return &IntValue{Value: s}, err
	case KindFloatValue:
		s, err := literal(n.Value)
		return &FloatValue{Value: s}, err
	case KindEnumValue:
		s, err := literal(n.Value)
		return &EnumValue{Value: s}, err
	case KindBooleanValue:
		var b bool
		if err := json.Unmarshal(n.Value, &b); err != nil {
			return nil, err
		}
		return &BooleanValue{Value: b}, nil
	case KindNullValue:
		return &NullValue{}, nil
	case KindVariable:
		return &Variable{Name: n.Name.value()}, nil
	case KindListValue:
		list := &ListValue{}
		for _, m := range n.Values {
			v, err := decodeValue(m)
			if err != nil {
				return nil, err
			}
			list.Values = append(list.Values, v)
		}
		return list, nil
	case KindObjectValue:
		obj := &ObjectValue{}
		for _, f := range n.Fields {
			v, err := decodeValue(f.Value)
			if err != nil {
				return nil, err
			}
			obj.Fields = append(obj.Fields, &ObjectField{Name: f.Name.value(), Value: v})
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("value: %w %q", ErrUnknownKind, n.Kind)
	}
}

func literal(msg json.RawMessage) (string, error) {
	if len(msg) == 0 {
		return "", nil
	}
	var s string
	err := json.Unmarshal(msg, &s)
	return s, err
}

func (n *rawName) value() string {
	if n == nil {
		return ""
	}
	return n.Value
}

func (t *rawNamedType) value() string {
	if t == nil {
		return ""
	}
	return t.Name.value()
}
