package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Term is a sealed interface representing an argument value carried by an
// instruction (Apply arguments, Update change specs, CodeChange extras).
// Only Atom, String, Int, Bool, List and Tuple implement it.
type Term interface {
	term() // Sealed - only these types implement it
}

// Atom is a symbolic constant, e.g. a module or function name.
type Atom string

func (Atom) term() {}

// String is a text value.
type String string

func (String) term() {}

// Int is an integer value. Always int64.
type Int int64

func (Int) term() {}

// Bool is a boolean value.
type Bool bool

func (Bool) term() {}

// List is an ordered list of terms.
type List []Term

func (List) term() {}

// Tuple is a fixed-size group of terms.
type Tuple []Term

func (Tuple) term() {}

// termNode converts a Term to its JSON node form.
//
//	String -> "text"
//	Int    -> 42
//	Bool   -> true
//	List   -> [...]
//	Atom   -> {"atom": "name"}
//	Tuple  -> {"tuple": [...]}
func termNode(t Term) (any, error) {
	switch v := t.(type) {
	case String:
		return string(v), nil
	case Int:
		return int64(v), nil
	case Bool:
		return bool(v), nil
	case Atom:
		return map[string]any{"atom": string(v)}, nil
	case List:
		return termNodes(v)
	case Tuple:
		elems, err := termNodes(v)
		if err != nil {
			return nil, err
		}
		return map[string]any{"tuple": elems}, nil
	case nil:
		return nil, fmt.Errorf("nil term")
	default:
		return nil, fmt.Errorf("unsupported term type: %T", t)
	}
}

func termNodes(ts []Term) ([]any, error) {
	out := make([]any, len(ts))
	for i, t := range ts {
		n, err := termNode(t)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = n
	}
	return out, nil
}

// UnmarshalTerm decodes a JSON value into a Term.
// Floats and nulls are rejected: an upgrade instruction never carries them.
func UnmarshalTerm(data []byte) (Term, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty JSON value")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return String(s), nil

	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, err
		}
		return Bool(b), nil

	case 'n':
		return nil, fmt.Errorf("null is not a valid term")

	case '[':
		elems, err := unmarshalTerms(data)
		if err != nil {
			return nil, err
		}
		return List(elems), nil

	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil, err
		}
		if len(obj) != 1 {
			return nil, fmt.Errorf("term object must have exactly one of \"atom\" or \"tuple\"")
		}
		if raw, ok := obj["atom"]; ok {
			var name string
			if err := json.Unmarshal(raw, &name); err != nil {
				return nil, fmt.Errorf("atom: %w", err)
			}
			return Atom(name), nil
		}
		if raw, ok := obj["tuple"]; ok {
			elems, err := unmarshalTerms(raw)
			if err != nil {
				return nil, fmt.Errorf("tuple: %w", err)
			}
			return Tuple(elems), nil
		}
		return nil, fmt.Errorf("term object must have exactly one of \"atom\" or \"tuple\"")

	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return nil, err
		}
		i, err := n.Int64()
		if err != nil {
			return nil, fmt.Errorf("floats are not valid terms: %s", string(data))
		}
		return Int(i), nil
	}
}

func unmarshalTerms(data []byte) ([]Term, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make([]Term, len(raw))
	for i, r := range raw {
		t, err := UnmarshalTerm(r)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = t
	}
	return out, nil
}

// FormatTerm renders a term in a compact, human-readable form.
func FormatTerm(t Term) string {
	switch v := t.(type) {
	case Atom:
		return string(v)
	case String:
		return strconv.Quote(string(v))
	case Int:
		return strconv.FormatInt(int64(v), 10)
	case Bool:
		return strconv.FormatBool(bool(v))
	case List:
		return "[" + formatTerms(v) + "]"
	case Tuple:
		return "{" + formatTerms(v) + "}"
	default:
		return fmt.Sprintf("%v", t)
	}
}

func formatTerms(ts []Term) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = FormatTerm(t)
	}
	return strings.Join(parts, ", ")
}
