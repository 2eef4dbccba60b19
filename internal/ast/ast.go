// Package ast holds the GraphQL document tree handed to the client by the
// build-time loader. Only the executable subset is modelled: operations,
// fragments, selections and argument values.
package ast

// Kind discriminators used by the loader's JSON output.
const (
	KindDocument            = "Document"
	KindOperationDefinition = "OperationDefinition"
	KindFragmentDefinition  = "FragmentDefinition"
	KindField               = "Field"
	KindInlineFragment      = "InlineFragment"
	KindFragmentSpread      = "FragmentSpread"
	KindStringValue         = "StringValue"
	KindVariable            = "Variable"
	KindListValue           = "ListValue"
	KindObjectValue         = "ObjectValue"
	KindIntValue            = "IntValue"
	KindFloatValue          = "FloatValue"
	KindBooleanValue        = "BooleanValue"
	KindEnumValue           = "EnumValue"
	KindNullValue           = "NullValue"
)

// Operation types.
const (
	OperationQuery    = "query"
	OperationMutation = "mutation"
)

// Document is a loaded GraphQL source file.
type Document struct {
	Loc         *Location
	Definitions []Definition
}

// Location points back into the source text of the document.
type Location struct {
	Start  int
	End    int
	Source *Source
}

// Source is the original text the document was loaded from.
type Source struct {
	Body string
	Name string
}

// Body returns the source text, or an empty string when the document carries
// no location.
func (d *Document) Body() string {
	if d == nil || d.Loc == nil || d.Loc.Source == nil {
		return ""
	}
	return d.Loc.Source.Body
}

// End returns loc.end, or zero when the document carries no location.
func (d *Document) End() int {
	if d == nil || d.Loc == nil {
		return 0
	}
	return d.Loc.End
}

// Fragments returns the fragment definitions in document order.
func (d *Document) Fragments() []*FragmentDefinition {
	var out []*FragmentDefinition
	for _, def := range d.Definitions {
		if frag, ok := def.(*FragmentDefinition); ok {
			out = append(out, frag)
		}
	}
	return out
}

// Definition is a top-level construct: *OperationDefinition or
// *FragmentDefinition.
type Definition interface {
	definitionNode()
}

// OperationDefinition is a query or a mutation.
type OperationDefinition struct {
	Operation    string
	Name         string
	SelectionSet *SelectionSet
}

// FragmentDefinition is a named, reusable selection set.
type FragmentDefinition struct {
	Name          string
	TypeCondition string
	SelectionSet  *SelectionSet
}

func (*OperationDefinition) definitionNode() {}
func (*FragmentDefinition) definitionNode()  {}

// SelectionSet is an ordered list of selections.
type SelectionSet struct {
	Selections []Selection
}

// Selection is one item inside braces: *Field, *InlineFragment or
// *FragmentSpread.
type Selection interface {
	selectionNode()
}

// Field selects a single field, optionally aliased.
type Field struct {
	Alias        string
	Name         string
	Arguments    []*Argument
	SelectionSet *SelectionSet
}

// InlineFragment is a `... on Type { }` block.
type InlineFragment struct {
	TypeCondition string
	SelectionSet  *SelectionSet
}

// FragmentSpread is a `...Name` reference.
type FragmentSpread struct {
	Name string
}

func (*Field) selectionNode()          {}
func (*InlineFragment) selectionNode() {}
func (*FragmentSpread) selectionNode() {}

// Argument is a `name: value` pair on a field.
type Argument struct {
	Name  string
	Value Value
}

// Value is an argument value literal.
type Value interface {
	valueNode()
}

// StringValue is a quoted string literal.
type StringValue struct{ Value string }

// Variable is a `$name` reference.
type Variable struct{ Name string }

// ListValue is a `[ ]` literal.
type ListValue struct{ Values []Value }

// ObjectValue is a `{ }` input object literal.
type ObjectValue struct{ Fields []*ObjectField }

// ObjectField is one `name: value` entry of an ObjectValue.
type ObjectField struct {
	Name  string
	Value Value
}

// IntValue keeps the literal text of an integer.
type IntValue struct{ Value string }

// FloatValue keeps the literal text of a float.
type FloatValue struct{ Value string }

// BooleanValue is true or false.
type BooleanValue struct{ Value bool }

// EnumValue is a bare enum name.
type EnumValue struct{ Value string }

// NullValue is the null literal.
type NullValue struct{}

func (*StringValue) valueNode()  {}
func (*Variable) valueNode()     {}
func (*ListValue) valueNode()    {}
func (*ObjectValue) valueNode()  {}
func (*IntValue) valueNode()     {}
func (*FloatValue) valueNode()   {}
func (*BooleanValue) valueNode() {}
func (*EnumValue) valueNode()    {}
func (*NullValue) valueNode()    {}
