package typesystem

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Node is the serialized form of a term, used to persist definitions.
type Node struct {
	K     string   `yaml:"k"`
	Name  string   `yaml:"name,omitempty"`
	Index int      `yaml:"index,omitempty"`
	Var   int      `yaml:"var,omitempty"`
	Sort  Sort     `yaml:"sort,omitempty"`
	Value int64    `yaml:"value,omitempty"`
	Assoc bool     `yaml:"assoc,omitempty"`
	Sorts []Sort   `yaml:"sorts,omitempty"`
	Names []string `yaml:"names,omitempty"`
	Args  []*Node  `yaml:"args,omitempty"`
}

var aliasKindNames = map[AliasKind]string{
	Projection: "projection",
	Inherent:   "inherent",
	Opaque:     "opaque",
	Weak:       "weak",
}

// Encode converts a term into its serialized form.
func Encode(t Term) *Node {
	if t == nil {
		return nil
	}
	switch t := t.(type) {
	case *TCon:
		return &Node{K: "con", Name: t.Name, Args: encodeList(t.Args)}
	case *TParam:
		return &Node{K: "param", Index: t.Index, Name: t.Name, Sort: t.Kind}
	case *TInfer:
		return &Node{K: "infer", Index: t.ID}
	case *TBound:
		return &Node{K: "bound", Index: t.DeBruijn, Var: t.Var, Sort: t.Kind}
	case *TPlaceholder:
		return &Node{K: "placeholder", Index: t.Universe, Var: t.Var, Sort: t.Kind}
	case *TRef:
		return &Node{K: "ref", Args: encodeList([]Term{t.Region, t.Elem})}
	case *TTuple:
		return &Node{K: "tuple", Args: encodeList(t.Elements)}
	case *TFunc:
		return &Node{K: "func", Args: encodeList(append(append([]Term{}, t.Params...), t.Result))}
	case *TArray:
		return &Node{K: "array", Args: encodeList([]Term{t.Elem, t.Len})}
	case *TAlias:
		return &Node{K: "alias", Name: string(t.Def), Index: int(t.Kind), Args: encodeList(t.Args)}
	case *TForall:
		return &Node{K: "forall", Sorts: t.Vars, Names: t.Names, Args: []*Node{Encode(t.Body)}}
	case *RStatic:
		return &Node{K: "static"}
	case *CValue:
		return &Node{K: "value", Value: t.Value}
	case *CAlias:
		return &Node{K: "calias", Name: string(t.Def), Assoc: t.Assoc, Args: encodeList(t.Args)}
	case *PTrait:
		return &Node{K: "trait", Name: string(t.Trait), Args: encodeList(append([]Term{t.Self}, t.Args...))}
	case *PProjection:
		return &Node{K: "projection", Args: []*Node{Encode(t.Alias), Encode(t.Term)}}
	case *PWellFormed:
		return &Node{K: "wf", Args: []*Node{Encode(t.Term)}}
	case *PAliasRelate:
		return &Node{K: "relate", Args: encodeList([]Term{t.Left, t.Right})}
	}
	panic(fmt.Sprintf("typesystem: cannot encode %T", t))
}

func encodeList(ts []Term) []*Node {
	out := make([]*Node, len(ts))
	for i, t := range ts {
		out[i] = Encode(t)
	}
	return out
}

// Decode rebuilds a term from its serialized form.
func Decode(n *Node) (Term, error) {
	if n == nil {
		return nil, nil
	}
	args, err := decodeList(n.Args)
	if err != nil {
		return nil, err
	}
	want := func(count int) error {
		if len(args) != count {
			return fmt.Errorf("decode %s: want %d children, got %d", n.K, count, len(args))
		}
		return nil
	}
	switch n.K {
	case "con":
		return Con(n.Name, args...), nil
	case "param":
		return Param(n.Index, n.Name, n.Sort), nil
	case "infer":
		return Infer(n.Index), nil
	case "bound":
		if n.Index < 0 {
			return nil, fmt.Errorf("decode bound: negative index %d", n.Index)
		}
		return Bound(n.Index, n.Var, n.Sort), nil
	case "placeholder":
		return Placeholder(n.Index, n.Var, n.Sort), nil
	case "ref":
		if err := want(2); err != nil {
			return nil, err
		}
		return Ref(args[0], args[1]), nil
	case "tuple":
		return Tuple(args...), nil
	case "func":
		if len(args) == 0 {
			return nil, fmt.Errorf("decode func: missing result")
		}
		return Func(args[:len(args)-1], args[len(args)-1]), nil
	case "array":
		if err := want(2); err != nil {
			return nil, err
		}
		return Array(args[0], args[1]), nil
	case "alias":
		kind := AliasKind(n.Index)
		if _, ok := aliasKindNames[kind]; !ok {
			return nil, fmt.Errorf("decode alias: unknown kind %d", n.Index)
		}
		return Alias(kind, DefID(n.Name), args...), nil
	case "forall":
		if err := want(1); err != nil {
			return nil, err
		}
		return Forall(n.Sorts, n.Names, args[0]), nil
	case "static":
		return Static, nil
	case "value":
		return Value(n.Value), nil
	case "calias":
		return ConstAlias(DefID(n.Name), n.Assoc, args...), nil
	case "trait":
		if len(args) == 0 {
			return nil, fmt.Errorf("decode trait: missing self type")
		}
		return Implements(args[0], DefID(n.Name), args[1:]...), nil
	case "projection":
		if err := want(2); err != nil {
			return nil, err
		}
		alias, ok := args[0].(*TAlias)
		if !ok {
			return nil, fmt.Errorf("decode projection: %s is not an alias", args[0])
		}
		return ProjectsTo(alias, args[1]), nil
	case "wf":
		if err := want(1); err != nil {
			return nil, err
		}
		return WellFormed(args[0]), nil
	case "relate":
		if err := want(2); err != nil {
			return nil, err
		}
		return AliasRelate(args[0], args[1]), nil
	}
	return nil, fmt.Errorf("decode: unknown node kind %q", n.K)
}

func decodeList(ns []*Node) ([]Term, error) {
	out := make([]Term, len(ns))
	for i, n := range ns {
		t, err := Decode(n)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

// MarshalTerm encodes a term as YAML.
func MarshalTerm(t Term) ([]byte, error) {
	return yaml.Marshal(Encode(t))
}

// UnmarshalTerm decodes a term from YAML produced by MarshalTerm.
func UnmarshalTerm(data []byte) (Term, error) {
	var n Node
	if err := yaml.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("decode term: %w", err)
	}
	return Decode(&n)
}
