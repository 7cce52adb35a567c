// Package ast defines Tak's abstract syntax tree: a tagged sum of node
// kinds (spec §3.5), each carrying source position and a non-owning
// parent back-reference. Dispatch is via the Visitor interface and
// per-node Accept methods — no runtime type inspection.
package ast

import (
	"github.com/takc-lang/tak/internal/token"
	"github.com/takc-lang/tak/internal/types"
)

// Range is a source span: start/end position plus file and line.
type Range struct {
	File      string
	StartLine int
	EndLine   int
	StartCol  int
	EndCol    int
}

// Node is the common interface every AST node implements.
type Node interface {
	Accept(v Visitor) error
	Loc() Range
	SetParent(p Node)
	Parent() Node
}

// Base is embedded by every concrete node; it supplies Loc/Parent.
type Base struct {
	Location Range
	ParentRef Node
}

func (b *Base) Loc() Range       { return b.Location }
func (b *Base) SetParent(p Node) { b.ParentRef = p }
func (b *Base) Parent() Node     { return b.ParentRef }

// Typed is embedded by nodes that carry a resolved TypeData once the
// checker has run (spec §4.6 "evaluate... returns the node's computed
// type").
type Typed struct {
	ResolvedType types.TypeData
	HasType      bool
}

func (t *Typed) SetType(td types.TypeData) { t.ResolvedType = td; t.HasType = true }
func (t *Typed) Type() (types.TypeData, bool) { return t.ResolvedType, t.HasType }

// Visitor is the exhaustive-match dispatch surface. Every node kind
// from spec §3.5 has a Visit method.
type Visitor interface {
	VisitNamespaceDecl(*NamespaceDecl) error
	VisitBlock(*Block) error
	VisitProcDecl(*ProcDecl) error
	VisitVarDecl(*VarDecl) error
	VisitTypeAlias(*TypeAlias) error
	VisitStructDef(*StructDef) error
	VisitEnumDef(*EnumDef) error
	VisitIncludeStmt(*IncludeStmt) error
	VisitBranch(*Branch) error
	VisitFor(*For) error
	VisitWhile(*While) error
	VisitDoWhile(*DoWhile) error
	VisitSwitch(*Switch) error
	VisitCase(*Case) error
	VisitRet(*Ret) error
	VisitBrk(*Brk) error
	VisitCont(*Cont) error
	VisitDefer(*Defer) error
	VisitDeferIf(*DeferIf) error
	VisitCall(*Call) error
	VisitBinExpr(*BinExpr) error
	VisitUnaryExpr(*UnaryExpr) error
	VisitSubscript(*Subscript) error
	VisitMemberAccess(*MemberAccess) error
	VisitCast(*Cast) error
	VisitSizeof(*Sizeof) error
	VisitIdentifier(*Identifier) error
	VisitLiteral(*Literal) error
	VisitBracedExpr(*BracedExpr) error
}

// ---- Declarations -----------------------------------------------------

type NamespaceDecl struct {
	Base
	Name     string
	Children []Node
}

func (n *NamespaceDecl) Accept(v Visitor) error { return v.VisitNamespaceDecl(n) }

type Block struct {
	Base
	Children []Node
}

func (n *Block) Accept(v Visitor) error { return v.VisitBlock(n) }

type Param struct {
	Name        string
	Type        types.TypeData
	SymbolIndex uint32
}

type ProcDecl struct {
	Base
	Typed
	Name          string
	CanonicalName string
	SymbolIndex   uint32
	Generics      []string // generic parameter names; non-empty => generic-base
	Params        []Param
	ReturnType    *types.TypeData
	Body          *Block // nil for a generic-base decl (body skipped, never instantiated) and for a body-less prototype
	Constant      bool
	Internal      bool
	External      bool
	ExternC       bool
	Variadic      bool
}

func (n *ProcDecl) Accept(v Visitor) error { return v.VisitProcDecl(n) }

type VarDecl struct {
	Base
	Typed
	Name          string
	CanonicalName string
	SymbolIndex   uint32
	DeclaredType  *types.TypeData // nil when inferred (`:=`/`::=`)
	Init          Node            // expression, may be nil
	Constant      bool
	Internal      bool
	External      bool
}

func (n *VarDecl) Accept(v Visitor) error { return v.VisitVarDecl(n) }

type TypeAlias struct {
	Base
	Name   string
	Target types.TypeData
}

func (n *TypeAlias) Accept(v Visitor) error { return v.VisitTypeAlias(n) }

type StructField struct {
	Name string
	Type types.TypeData
}

type StructDef struct {
	Base
	Name          string
	CanonicalName string
	Generics      []string
	Fields        []StructField
}

func (n *StructDef) Accept(v Visitor) error { return v.VisitStructDef(n) }

type Enumerator struct {
	Name  string
	Value int64
}

type EnumDef struct {
	Base
	Name       string
	Underlying types.Primitive
	Members    []Enumerator
}

func (n *EnumDef) Accept(v Visitor) error { return v.VisitEnumDef(n) }

type IncludeStmt struct {
	Base
	Path         string
	ResolvedPath string
}

func (n *IncludeStmt) Accept(v Visitor) error { return v.VisitIncludeStmt(n) }

// ---- Control flow -------------------------------------------------------

type IfArm struct {
	Cond Node
	Body *Block
}

// Branch is an `if` with an optional `else` (which may itself be
// another Branch for `else if`, or a plain Block).
type Branch struct {
	Base
	If   IfArm
	Else Node // *Block or *Branch, nil if absent
}

func (n *Branch) Accept(v Visitor) error { return v.VisitBranch(n) }

type For struct {
	Base
	Init   Node // VarDecl or expression-statement, nil if elided
	Cond   Node // nil if elided
	Update Node // nil if elided
	Body   *Block
}

func (n *For) Accept(v Visitor) error { return v.VisitFor(n) }

type While struct {
	Base
	Cond Node
	Body *Block
}

func (n *While) Accept(v Visitor) error { return v.VisitWhile(n) }

type DoWhile struct {
	Base
	Body *Block
	Cond Node
}

func (n *DoWhile) Accept(v Visitor) error { return v.VisitDoWhile(n) }

type Case struct {
	Base
	Typed
	Value       Node // literal expression
	Body        *Block
	Fallthrough bool
	IsDefault   bool
}

func (n *Case) Accept(v Visitor) error { return v.VisitCase(n) }

type Switch struct {
	Base
	Typed
	Target Node
	Cases  []*Case // last one may be IsDefault
}

func (n *Switch) Accept(v Visitor) error { return v.VisitSwitch(n) }

type Ret struct {
	Base
	Value Node // nil for bare `ret;`
}

func (n *Ret) Accept(v Visitor) error { return v.VisitRet(n) }

type Brk struct{ Base }

func (n *Brk) Accept(v Visitor) error { return v.VisitBrk(n) }

type Cont struct{ Base }

func (n *Cont) Accept(v Visitor) error { return v.VisitCont(n) }

type Defer struct {
	Base
	Call *Call
}

func (n *Defer) Accept(v Visitor) error { return v.VisitDefer(n) }

type DeferIf struct {
	Base
	Cond Node
	Call *Call
}

func (n *DeferIf) Accept(v Visitor) error { return v.VisitDeferIf(n) }

// ---- Expressions ---------------------------------------------------------

type Call struct {
	Base
	Typed
	Callee Node
	Args   []Node
}

func (n *Call) Accept(v Visitor) error { return v.VisitCall(n) }

type BinExpr struct {
	Base
	Typed
	Op    token.Type
	Left  Node
	Right Node
}

func (n *BinExpr) Accept(v Visitor) error { return v.VisitBinExpr(n) }

type UnaryExpr struct {
	Base
	Typed
	Op      token.Type
	Postfix bool // true for postfix ++ / --
	Operand Node
}

func (n *UnaryExpr) Accept(v Visitor) error { return v.VisitUnaryExpr(n) }

type Subscript struct {
	Base
	Typed
	Target Node
	Index  Node
}

func (n *Subscript) Accept(v Visitor) error { return v.VisitSubscript(n) }

type MemberAccess struct {
	Base
	Typed
	Target Node
	Path   []string // dotted member chain, e.g. a.b.c -> ["b","c"]
}

func (n *MemberAccess) Accept(v Visitor) error { return v.VisitMemberAccess(n) }

type Cast struct {
	Base
	Typed
	Target types.TypeData
	Value  Node
}

func (n *Cast) Accept(v Visitor) error { return v.VisitCast(n) }

// Sizeof holds either a type operand (TypeOperand != nil) or an
// expression operand (ExprOperand != nil), never both.
type Sizeof struct {
	Base
	Typed
	TypeOperand *types.TypeData
	ExprOperand Node
}

func (n *Sizeof) Accept(v Visitor) error { return v.VisitSizeof(n) }

type Identifier struct {
	Base
	Typed
	Name        string
	SymbolIndex uint32
}

func (n *Identifier) Accept(v Visitor) error { return v.VisitIdentifier(n) }

// LiteralKind discriminates a Literal's token origin.
type LiteralKind uint8

const (
	LitInt LiteralKind = iota
	LitFloat
	LitHex
	LitString
	LitChar
	LitBool
	LitNullptr
)

type Literal struct {
	Base
	Typed
	Kind LiteralKind
	Raw  string // original source slice, escapes unresolved
}

func (n *Literal) Accept(v Visitor) error { return v.VisitLiteral(n) }

// BracedExpr is `{ e1, e2, ... }` — an array or struct initializer
// before the checker determines which.
type BracedExpr struct {
	Base
	Typed
	Elements []Node
}

func (n *BracedExpr) Accept(v Visitor) error { return v.VisitBracedExpr(n) }

// Attach sets child's parent to parent and returns child, for use at
// construction sites ("tree ownership is from the toplevel-declarations
// list downward", spec §3.5).
func Attach(parent Node, child Node) Node {
	if child != nil {
		child.SetParent(parent)
	}
	return child
}

// EnclosingProc walks Parent links to find the nearest ProcDecl.
func EnclosingProc(n Node) *ProcDecl {
	for cur := n.Parent(); cur != nil; cur = cur.Parent() {
		if p, ok := cur.(*ProcDecl); ok {
			return p
		}
	}
	return nil
}

// EnclosingLoop walks Parent links to find the nearest For/While/DoWhile.
func EnclosingLoop(n Node) Node {
	for cur := n.Parent(); cur != nil; cur = cur.Parent() {
		switch cur.(type) {
		case *For, *While, *DoWhile:
			return cur
		}
	}
	return nil
}

// EnclosingSwitch walks Parent links to find the nearest Switch.
func EnclosingSwitch(n Node) *Switch {
	for cur := n.Parent(); cur != nil; cur = cur.Parent() {
		if s, ok := cur.(*Switch); ok {
			return s
		}
	}
	return nil
}
