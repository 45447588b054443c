package opctx

import "errors"

// Errors returned by AddOp and SetGlueOp. Callers compare with errors.Is.
var (
	// ErrNameClash is returned when an operator of the same (name,
	// placement) already exists for a non-function placement, or an
	// operator of the same (name, arity) already exists for a function.
	ErrNameClash = errors.New("opctx: operator name clash")

	// ErrInvariantViolation is returned when adding an infix operator
	// whose precedence collides with an existing infix operator of a
	// different associativity.
	ErrInvariantViolation = errors.New("opctx: infix precedence/associativity mismatch")

	// ErrBadGlueOp is returned by SetGlueOp when the given operator is
	// not an infix operator of arity 2.
	ErrBadGlueOp = errors.New("opctx: glue operator must be infix with arity 2")
)

// Table is a registry of operators, looked up by (name, placement) or, for
// functions, by (name, arity). Operators are heap-allocated individually so
// that *Operator references handed out by Lookup* remain valid for the
// lifetime of the table even as more operators are registered — trees built
// by the parser hold such references as non-owning back-pointers.
type Table struct {
	operators []*Operator
	glueOp    *Operator
}

// New returns an empty operator table with no glue operator.
func New() *Table {
	return &Table{}
}

// AddOp registers op in the table. It returns ErrNameClash or
// ErrInvariantViolation if op cannot be added without breaking an
// invariant (see opctx.Table doc and spec §4.1).
func (t *Table) AddOp(op Operator) (*Operator, error) {
	if op.Placement != Function {
		if t.LookupOp(op.Name, op.Placement) != nil {
			return nil, ErrNameClash
		}
	} else if t.LookupFunction(op.Name, op.Arity) != nil {
		return nil, ErrNameClash
	}

	if op.Placement == Infix {
		for _, existing := range t.operators {
			if existing.Placement == Infix && existing.Precedence == op.Precedence && existing.Associativity != op.Associativity {
				return nil, ErrInvariantViolation
			}
		}
	}

	stored := op
	t.operators = append(t.operators, &stored)
	return &stored, nil
}

// MustAddOp is AddOp but panics on failure; convenient for seeding a
// built-in table where failure indicates a programmer error.
func (t *Table) MustAddOp(op Operator) *Operator {
	ref, err := t.AddOp(op)
	if err != nil {
		panic(err)
	}
	return ref
}

// SetGlueOp records op as the operator synthesised between adjacent
// sub-expressions that lack an explicit infix connector (e.g. "2x" with
// glue-op "*" becomes "2*x"). op must already be registered in the table.
func (t *Table) SetGlueOp(op *Operator) error {
	if op == nil || op.Placement != Infix || op.Arity != 2 {
		return ErrBadGlueOp
	}
	t.glueOp = op
	return nil
}

// GlueOp returns the configured glue operator, or nil if none is set.
func (t *Table) GlueOp() *Operator {
	return t.glueOp
}

// LookupOp searches for an operator by (name, placement). For Function
// placement this returns a tentative candidate: the zero-arity overload if
// one exists (so bare function names like "pi" can evaluate as constants),
// otherwise any overload of that name. Exact arity resolution happens at
// pop-and-insert time via LookupFunction.
func (t *Table) LookupOp(name string, placement Placement) *Operator {
	if placement == Function {
		return t.lookupTentativeFunction(name)
	}
	for _, op := range t.operators {
		if op.Placement == placement && op.Name == name {
			return op
		}
	}
	return nil
}

func (t *Table) lookupTentativeFunction(name string) *Operator {
	var nonZero *Operator
	for _, op := range t.operators {
		if op.Placement != Function || op.Name != name {
			continue
		}
		if op.Arity == 0 {
			return op
		}
		if nonZero == nil {
			nonZero = op
		}
	}
	return nonZero
}

// LookupFunction searches for an exact (name, arity) function overload.
func (t *Table) LookupFunction(name string, arity int) *Operator {
	for _, op := range t.operators {
		if op.Placement == Function && op.Name == name && op.Arity == arity {
			return op
		}
	}
	return nil
}

// IsFunctionOverloaded reports whether more than one Function operator with
// this name exists in the table.
func (t *Table) IsFunctionOverloaded(name string) bool {
	count := 0
	for _, op := range t.operators {
		if op.Placement == Function && op.Name == name {
			count++
			if count > 1 {
				return true
			}
		}
	}
	return false
}

// Names returns every registered operator name once, in order of first
// registration. The result is not sorted by length; lexer.NewScanner sorts
// its own copy longest-first for greedy tokenization.
func (t *Table) Names() []string {
	seen := make(map[string]bool, len(t.operators))
	names := make([]string, 0, len(t.operators))
	for _, op := range t.operators {
		if !seen[op.Name] {
			seen[op.Name] = true
			names = append(names, op.Name)
		}
	}
	return names
}

// RemoveOp deletes every operator registration matching name (all
// placements, all function arities). Used when unregistering a composite
// (user-defined) function. Reports whether anything was removed.
func (t *Table) RemoveOp(name string) bool {
	removed := false
	kept := t.operators[:0]
	for _, op := range t.operators {
		if op.Name == name {
			removed = true
			if t.glueOp == op {
				t.glueOp = nil
			}
			continue
		}
		kept = append(kept, op)
	}
	t.operators = kept
	return removed
}

// All returns every registered operator; used by evalctx.Extended to copy a table.
func (t *Table) All() []*Operator {
	out := make([]*Operator, len(t.operators))
	copy(out, t.operators)
	return out
}
