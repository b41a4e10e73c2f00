package selector

import "fmt"

// Expr is a node of a parsed query.
type Expr interface {
	exprNode()
	String() string
}

// Name references a source by its pattern literal.
// Pos is the rune offset of the first character of the name.
type Name struct {
	Value string
	Pos   int
}

func (Name) exprNode() {}

func (n Name) String() string { return n.Value }

// Or merges the pools of both operands.
type Or struct {
	Left  Expr
	Right Expr
}

func (Or) exprNode() {}

func (o Or) String() string { return fmt.Sprintf("(%s | %s)", o.Left, o.Right) }

// And merges the pools of both operands. It pools exactly like Or.
type And struct {
	Left  Expr
	Right Expr
}

func (And) exprNode() {}

func (a And) String() string { return fmt.Sprintf("(%s & %s)", a.Left, a.Right) }

// Names returns the leaves of e from left to right.
func Names(e Expr) []Name {
	var out []Name
	var walk func(Expr)
	walk = func(e Expr) {
		switch n := e.(type) {
		case Name:
			out = append(out, n)
		case Or:
			walk(n.Left)
			walk(n.Right)
		case And:
			walk(n.Left)
			walk(n.Right)
		}
	}
	walk(e)
	return out
}
