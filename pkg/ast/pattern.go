package ast

// Pattern is a binding target: an identifier or a destructuring pattern.
type Pattern interface {
	patternNode()
}

// Ident is a plain binding identifier.
type Ident struct {
	Name string
	Span Span
}

// ObjectPattern is { a, b: c, ...rest }.
type ObjectPattern struct {
	// Properties holds the value side of each property; rest elements appear
	// as *RestElement.
	Properties []Pattern
}

// ArrayPattern is [a, , b, ...rest]. Holes are nil.
type ArrayPattern struct {
	Elements []Pattern
}

// AssignPattern is target = default.
type AssignPattern struct {
	Left Pattern
}

// RestElement is ...target.
type RestElement struct {
	Argument Pattern
}

func (*Ident) patternNode()         {}
func (*ObjectPattern) patternNode() {}
func (*ArrayPattern) patternNode()  {}
func (*AssignPattern) patternNode() {}
func (*RestElement) patternNode()   {}

// BoundIdents calls fn for every leaf identifier a pattern binds, in source
// order. Defaults, rest elements and nested patterns are all flattened.
func BoundIdents(p Pattern, fn func(*Ident)) {
	switch p := p.(type) {
	case *Ident:
		fn(p)
	case *ObjectPattern:
		for _, prop := range p.Properties {
			BoundIdents(prop, fn)
		}
	case *ArrayPattern:
		for _, el := range p.Elements {
			if el == nil {
				continue
			}
			BoundIdents(el, fn)
		}
	case *AssignPattern:
		BoundIdents(p.Left, fn)
	case *RestElement:
		BoundIdents(p.Argument, fn)
	}
}
