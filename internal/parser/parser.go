// Package parser implements the shunting-yard operator-precedence parser
// (spec §4.3): two bounded stacks, glue-operator insertion, function arity
// counting for variadic functions, and the full error enumeration from
// spec §6.
//
// Grounded on original_source/src/parsing/parser.c (the algorithm) and on
// sentra's internal/parser.Parser (the Go struct/constructor idiom: a
// struct holding token position plus small peek/advance helpers).
package parser

import (
	"calc/internal/calcerr"
	"calc/internal/node"
	"calc/internal/opctx"
	"calc/internal/lexer"
)

// maxStackSize bounds both the node stack and the op stack, per spec §5
// ("fixed ~128-150 entries"). Exceeding it yields StackExceeded rather
// than undefined behaviour.
const maxStackSize = 128

// maxChildren bounds a single operator node's child count; exceeding it
// (an operator called with an implausible number of arguments) yields
// ChildrenExceeded rather than an unbounded allocation.
const maxChildren = 1 << 20

// opEntry is one entry on the op stack: either the opening-parenthesis
// sentinel (Op == nil) or a pushed operator awaiting its operands.
// CountOperands is true only for functions, whose Arity field is a live
// operand counter rather than a fixed declared arity (spec §4.3).
type opEntry struct {
	Op            *opctx.Operator
	CountOperands bool
	Arity         int
}

// Parser holds shunting-yard state for a single token stream.
type Parser struct {
	tokens []lexer.Token
	pos    int
	table  *opctx.Table

	nodeStack []*node.Node
	opStack   []opEntry
	awaitInfix bool
}

// New builds a Parser over tokens, resolving operators against table.
func New(tokens []lexer.Token, table *opctx.Table) *Parser {
	return &Parser{tokens: tokens, table: table}
}

// Parse runs the shunting-yard algorithm to completion and returns the
// resulting operator tree, or the first structural/semantic error
// encountered. On error the node stack is guaranteed empty before
// returning (spec §8 invariant: every error path leaves no leaked
// subtrees — trivial in Go since nodes are garbage collected, but the
// stacks themselves are still drained to keep Parser reusable-safe).
func Parse(tokens []lexer.Token, table *opctx.Table) (*node.Node, error) {
	return New(tokens, table).Parse()
}

func (p *Parser) current() (lexer.Token, bool) {
	if p.pos >= len(p.tokens) {
		return lexer.Token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *Parser) next() (lexer.Token, bool) {
	if p.pos+1 >= len(p.tokens) {
		return lexer.Token{}, false
	}
	return p.tokens[p.pos+1], true
}

func (p *Parser) prev() (lexer.Token, bool) {
	if p.pos == 0 {
		return lexer.Token{}, false
	}
	return p.tokens[p.pos-1], true
}

// Parse processes every token left to right, maintaining the node and op
// stacks, then drains the op stack and returns the single resulting tree.
func (p *Parser) Parse() (result *node.Node, err error) {
	defer func() {
		if err != nil {
			p.nodeStack = nil
			p.opStack = nil
		}
	}()

	for {
		tok, ok := p.current()
		if !ok {
			break
		}

		if err := p.maybeInsertGlue(tok); err != nil {
			return nil, err
		}

		switch {
		case tok.Type == lexer.TokenOpenParen:
			if err := p.pushSentinel(); err != nil {
				return nil, err
			}
			p.pos++

		case tok.Type == lexer.TokenCloseParen:
			if err := p.handleCloseParen(); err != nil {
				return nil, err
			}
			p.pos++

		case tok.Type == lexer.TokenDelimiter:
			if err := p.handleDelimiter(); err != nil {
				return nil, err
			}
			p.pos++

		default:
			consumed, err := p.handleOperatorOrLeaf(tok)
			if err != nil {
				return nil, err
			}
			p.pos += consumed
		}
	}

	for len(p.opStack) > 0 {
		top := p.opStack[len(p.opStack)-1]
		if top.Op == nil {
			return nil, calcerr.New(calcerr.ExcessOpeningParen)
		}
		if err := p.popAndInsert(); err != nil {
			return nil, err
		}
	}

	switch len(p.nodeStack) {
	case 0:
		return nil, calcerr.New(calcerr.Empty)
	case 1:
		return p.nodeStack[0], nil
	default:
		return nil, calcerr.New(calcerr.MissingOperator)
	}
}

// maybeInsertGlue synthesises the glue operator between two adjacent
// sub-expressions lacking an explicit connector (spec §4.3 step 1).
func (p *Parser) maybeInsertGlue(tok lexer.Token) error {
	glue := p.table.GlueOp()
	if !p.awaitInfix || glue == nil {
		return nil
	}
	if tok.Type == lexer.TokenCloseParen || tok.Type == lexer.TokenDelimiter {
		return nil
	}
	if tok.Type == lexer.TokenOperator {
		if p.table.LookupOp(tok.Text, opctx.Infix) != nil {
			return nil
		}
		if p.table.LookupOp(tok.Text, opctx.Postfix) != nil {
			return nil
		}
	}

	if err := p.pushOperator(glue); err != nil {
		return err
	}
	// Force operand-counting off for the synthesised glue application so
	// a variadic glue function is not mistaken for an open argument list.
	top := &p.opStack[len(p.opStack)-1]
	top.CountOperands = false
	top.Arity = 2
	p.awaitInfix = false
	return nil
}

func (p *Parser) pushSentinel() error {
	return p.opPush(opEntry{Op: nil})
}

// handleCloseParen implements spec §4.3 step 3.
func (p *Parser) handleCloseParen() error {
	for len(p.opStack) > 0 && p.opStack[len(p.opStack)-1].Op != nil {
		if err := p.popAndInsert(); err != nil {
			return calcerr.New(calcerr.ExcessClosingParen)
		}
	}
	if len(p.opStack) == 0 {
		return calcerr.New(calcerr.ExcessClosingParen)
	}
	// Discard the sentinel itself.
	p.opStack = p.opStack[:len(p.opStack)-1]

	if len(p.opStack) > 0 {
		top := &p.opStack[len(p.opStack)-1]
		prevTok, hasPrev := p.prev()
		emptyParams := hasPrev && prevTok.Type == lexer.TokenOpenParen
		if top.CountOperands && !emptyParams {
			if top.Arity >= maxChildren {
				return calcerr.New(calcerr.ChildrenExceeded)
			}
			top.Arity++
		}
	}

	p.awaitInfix = true
	return nil
}

// handleDelimiter implements spec §4.3 step 4.
func (p *Parser) handleDelimiter() error {
	for len(p.opStack) > 0 && p.opStack[len(p.opStack)-1].Op != nil {
		if err := p.popAndInsert(); err != nil {
			return calcerr.New(calcerr.UnexpectedDelimiter)
		}
	}
	if len(p.opStack) < 2 {
		return calcerr.New(calcerr.UnexpectedDelimiter)
	}
	owner := &p.opStack[len(p.opStack)-2]
	if owner.CountOperands {
		if owner.Arity >= maxChildren {
			return calcerr.New(calcerr.ChildrenExceeded)
		}
		owner.Arity++
	}
	p.awaitInfix = false
	return nil
}

// handleOperatorOrLeaf implements spec §4.3 steps 5-8, returning the
// number of tokens consumed (always 1; kept as a return value so the
// caller's advancement stays uniform with the other per-token handlers).
func (p *Parser) handleOperatorOrLeaf(tok lexer.Token) (int, error) {
	if !p.awaitInfix {
		if tok.Type == lexer.TokenOperator {
			if fn := p.table.LookupOp(tok.Text, opctx.Function); fn != nil {
				return p.handleFunction(fn)
			}
			if pre := p.table.LookupOp(tok.Text, opctx.Prefix); pre != nil {
				if err := p.pushOperator(pre); err != nil {
					return 0, err
				}
				p.awaitInfix = pre.Arity == 0
				return 1, nil
			}
		}
		// Leaf: constant or variable.
		if len(p.nodeStack) >= maxStackSize {
			return 0, calcerr.New(calcerr.StackExceeded)
		}
		if tok.Type == lexer.TokenNumber {
			p.nodeStack = append(p.nodeStack, node.NewConstant(tok.Number))
		} else {
			p.nodeStack = append(p.nodeStack, node.NewVariable(tok.Text))
		}
		p.awaitInfix = true
		return 1, nil
	}

	// awaitInfix == true: expect infix, postfix, delimiter or close-paren
	// (those were already handled above); anything else here that isn't
	// an infix/postfix operator is an unexpected sub-expression.
	if tok.Type == lexer.TokenOperator {
		if in := p.table.LookupOp(tok.Text, opctx.Infix); in != nil {
			if err := p.pushOperator(in); err != nil {
				return 0, err
			}
			p.awaitInfix = false
			return 1, nil
		}
		if post := p.table.LookupOp(tok.Text, opctx.Postfix); post != nil {
			if err := p.pushOperator(post); err != nil {
				return 0, err
			}
			p.awaitInfix = true
			return 1, nil
		}
	}
	return 0, calcerr.New(calcerr.UnexpectedSubExpression)
}

// handleFunction implements the "Function found" branch of spec §4.3
// step 5. LookupOp already resolved a tentative overload (preferring the
// zero-arity one), so here we only decide, from what follows, whether this
// is a parenthesised call (arguments counted as "(", delimiters and ")"
// are processed normally), a bare zero-arity/variadic reference (folds
// immediately to a childless or empty-variadic node), or a bare unary
// application (no parens: the very next sub-expression is its one
// argument, e.g. "sin x").
func (p *Parser) handleFunction(fn *opctx.Operator) (int, error) {
	if err := p.opPush(opEntry{Op: fn, CountOperands: true, Arity: 0}); err != nil {
		return 0, err
	}

	nextTok, hasNext := p.next()
	nextIsOpenParen := hasNext && nextTok.Type == lexer.TokenOpenParen

	if !nextIsOpenParen {
		if fn.Arity == 0 || fn.IsVariadic() {
			if err := p.popAndInsert(); err != nil {
				return 0, err
			}
			p.awaitInfix = true
			return 1, nil
		}
		top := &p.opStack[len(p.opStack)-1]
		top.Arity = 1
	}
	p.awaitInfix = false
	return 1, nil
}

// pushOperator pushes a non-sentinel operator, defaulting CountOperands
// per placement (only functions count operands dynamically).
func (p *Parser) pushOperator(op *opctx.Operator) error {
	if op.Placement == opctx.Function {
		return p.opPush(opEntry{Op: op, CountOperands: true, Arity: 0})
	}
	return p.opPush(opEntry{Op: op, CountOperands: false, Arity: op.Arity})
}

// opPush implements the shunting-yard precedence discipline: infix and
// postfix operators first pop-and-insert everything of higher (or equal,
// left-associative) precedence, then the entry is pushed; postfix entries
// are immediately popped again since their single operand is already on
// the node stack (spec §4.3 step 6).
func (p *Parser) opPush(entry opEntry) error {
	if entry.Op != nil && (entry.Op.Placement == opctx.Infix || entry.Op.Placement == opctx.Postfix) {
		for len(p.opStack) > 0 {
			top := p.opStack[len(p.opStack)-1]
			if top.Op == nil {
				break
			}
			higher := entry.Op.Precedence < top.Op.Precedence
			equalLeft := entry.Op.Precedence == top.Op.Precedence && entry.Op.Associativity == opctx.Left
			if !higher && !equalLeft {
				break
			}
			if err := p.popAndInsert(); err != nil {
				return err
			}
		}
	}

	if len(p.opStack) >= maxStackSize {
		return calcerr.New(calcerr.StackExceeded)
	}
	p.opStack = append(p.opStack, entry)

	if entry.Op != nil && entry.Op.Placement == opctx.Postfix {
		return p.popAndInsert()
	}
	return nil
}

// popAndInsert removes the top op-stack entry and, unless it is the
// opening-parenthesis sentinel, builds the corresponding operator node
// from the node stack and pushes it back (spec §4.3 "Pop-and-insert").
func (p *Parser) popAndInsert() error {
	if len(p.opStack) == 0 {
		return calcerr.New(calcerr.MissingOperator)
	}
	entry := p.opStack[len(p.opStack)-1]
	p.opStack = p.opStack[:len(p.opStack)-1]

	if entry.Op == nil {
		return nil
	}

	op := entry.Op
	arity := entry.Arity
	if entry.CountOperands && arity != op.Arity {
		resolved := p.table.LookupFunction(op.Name, arity)
		if resolved == nil {
			resolved = p.table.LookupFunction(op.Name, opctx.DynamicArity)
		}
		if resolved == nil {
			return calcerr.Newf(calcerr.FunctionWrongArity, "%s called with %d argument(s)", op.Name, arity)
		}
		op = resolved
	}

	children := make([]*node.Node, arity)
	for i := arity - 1; i >= 0; i-- {
		if len(p.nodeStack) == 0 {
			return calcerr.New(calcerr.MissingOperand)
		}
		children[i] = p.nodeStack[len(p.nodeStack)-1]
		p.nodeStack = p.nodeStack[:len(p.nodeStack)-1]
	}
	p.nodeStack = append(p.nodeStack, node.NewOperator(op, children...))
	if len(p.nodeStack) >= maxStackSize {
		return calcerr.New(calcerr.StackExceeded)
	}
	return nil
}
