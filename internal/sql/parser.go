package sql

import (
	"fmt"
	"strconv"

	"minidb/pkg/types"
)

// precedence gives the binding power of a binary operator token, per the
// operator precedence table: OR(2), AND(3), comparisons(5), additive(7),
// multiplicative(10). All are left-associative.
func precedence(t TokenType) (int, bool) {
	switch t {
	case TokenOr:
		return 2, true
	case TokenAnd:
		return 3, true
	case TokenEq, TokenNe, TokenLt, TokenLe, TokenGt, TokenGe:
		return 5, true
	case TokenPlus, TokenMinus:
		return 7, true
	case TokenStar, TokenSlash:
		return 10, true
	default:
		return 0, false
	}
}

// Parser is a recursive-descent statement parser with a Pratt
// (precedence-climbing) expression parser, driven off two tokens of
// lookahead.
type Parser struct {
	lexer   *Lexer
	current Token
	peek    Token
	errors  []string
}

// NewParser creates a parser over input.
func NewParser(input string) *Parser {
	p := &Parser{lexer: NewLexer(input)}
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.current = p.peek
	p.peek = p.lexer.NextToken()
}

func (p *Parser) errorf(format string, args ...interface{}) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *Parser) expect(t TokenType) bool {
	if p.current.Type == t {
		p.nextToken()
		return true
	}
	p.errorf("expected %s, got %s", t, p.current.Type)
	return false
}

// Errors returns every error accumulated while parsing.
func (p *Parser) Errors() []string {
	return p.errors
}

// Parse parses a single statement, optionally terminated by ';'. Multiple
// statements in one input are not supported.
func (p *Parser) Parse() (Statement, error) {
	var stmt Statement

	switch p.current.Type {
	case TokenSelect:
		stmt = p.parseSelect()
	case TokenCreate:
		stmt = p.parseCreateTable()
	case TokenInsert, TokenUpdate, TokenDelete:
		return nil, fmt.Errorf("not implemented: %s", p.current.Type)
	default:
		return nil, fmt.Errorf("unexpected token: %s", p.current.Type)
	}

	if p.current.Type == TokenSemicolon {
		p.nextToken()
	}

	if len(p.errors) > 0 {
		return nil, fmt.Errorf("parse error: %v", p.errors)
	}
	return stmt, nil
}

func (p *Parser) parseSelect() *SelectStmt {
	stmt := &SelectStmt{}
	p.nextToken() // SELECT

	stmt.Targets = p.parseTargetList()

	if !p.expect(TokenFrom) {
		return stmt
	}
	if p.current.Type != TokenIdent {
		p.errorf("expected table name, got %s", p.current.Type)
		return stmt
	}
	stmt.Table = p.current.Literal
	p.nextToken()

	if p.current.Type == TokenWhere {
		p.nextToken()
		stmt.Where = p.parseExpr(0)
	}

	return stmt
}

// parseTargetList parses the comma-separated target list: each item is
// either '*' or an expression with an optional alias (`AS name` or a bare
// identifier immediately following the expression).
func (p *Parser) parseTargetList() []TargetItem {
	var items []TargetItem
	for {
		if p.current.Type == TokenStar {
			items = append(items, TargetItem{Star: true})
			p.nextToken()
		} else {
			expr := p.parseExpr(0)
			item := TargetItem{Expr: expr}
			if p.current.Type == TokenAs {
				p.nextToken()
				if p.current.Type != TokenIdent {
					p.errorf("expected alias after AS, got %s", p.current.Type)
				} else {
					item.Alias = p.current.Literal
					p.nextToken()
				}
			} else if p.current.Type == TokenIdent {
				item.Alias = p.current.Literal
				p.nextToken()
			}
			items = append(items, item)
		}

		if p.current.Type != TokenComma {
			break
		}
		p.nextToken()
	}
	return items
}

func (p *Parser) parseCreateTable() *CreateTableStmt {
	stmt := &CreateTableStmt{}
	p.nextToken() // CREATE

	if !p.expect(TokenTable) {
		return stmt
	}
	if p.current.Type != TokenIdent {
		p.errorf("expected table name, got %s", p.current.Type)
		return stmt
	}
	stmt.Table = p.current.Literal
	p.nextToken()

	if !p.expect(TokenLParen) {
		return stmt
	}

	for {
		col := p.parseColumnDef()
		if col != nil {
			stmt.Columns = append(stmt.Columns, *col)
		}
		if p.current.Type == TokenComma {
			p.nextToken()
			continue
		}
		break
	}

	p.expect(TokenRParen)
	return stmt
}

func (p *Parser) parseColumnDef() *ColumnDef {
	if p.current.Type != TokenIdent {
		p.errorf("expected column name, got %s", p.current.Type)
		return nil
	}
	col := &ColumnDef{Name: p.current.Literal, Nullable: true}
	p.nextToken()

	switch p.current.Type {
	case TokenInt, TokenInteger:
		col.Type = types.Int64
		p.nextToken()
	case TokenFloatKw:
		col.Type = types.Float64
		p.nextToken()
	case TokenBool, TokenBoolean:
		col.Type = types.Bool
		p.nextToken()
	case TokenText, TokenString:
		col.Type = types.Text
		p.nextToken()
	case TokenTimestamp, TokenDate:
		col.Type = types.Timestamp
		p.nextToken()
	case TokenVarchar:
		col.Type = types.VarChar
		p.nextToken()
		if !p.expect(TokenLParen) {
			return col
		}
		if p.current.Type != TokenIntLit {
			p.errorf("VARCHAR size must be an integer, got %s", p.current.Type)
			return col
		}
		n, err := strconv.ParseUint(p.current.Literal, 10, 32)
		if err != nil {
			p.errorf("invalid VARCHAR size %q", p.current.Literal)
			return col
		}
		col.MaxBytes = uint32(n)
		p.nextToken()
		p.expect(TokenRParen)
	default:
		p.errorf("expected a type, got %s", p.current.Type)
		return col
	}

	for {
		switch p.current.Type {
		case TokenNot:
			p.nextToken()
			if !p.expect(TokenNull) {
				return col
			}
			col.Nullable = false
		case TokenPrimary:
			p.nextToken()
			p.expect(TokenKey)
			col.Nullable = false
		case TokenUnique:
			p.nextToken()
		default:
			return col
		}
	}
}

// parseExpr parses an expression via precedence climbing: minPrec is the
// minimum binding power a binary operator must have to be consumed at
// this level.
func (p *Parser) parseExpr(minPrec int) Expr {
	left := p.parsePrimary()

	for {
		prec, ok := precedence(p.current.Type)
		if !ok || prec < minPrec {
			break
		}
		op := p.current.Type
		p.nextToken()
		right := p.parseExpr(prec + 1)
		left = &BinaryExpr{Left: left, Op: op, Right: right}
	}

	return left
}

func (p *Parser) parsePrimary() Expr {
	var expr Expr

	switch p.current.Type {
	case TokenIdent:
		expr = &IdentExpr{Name: p.current.Literal}
		p.nextToken()
	case TokenIntLit:
		v, err := strconv.ParseInt(p.current.Literal, 10, 64)
		if err != nil {
			p.errorf("invalid integer literal %q", p.current.Literal)
		}
		expr = &LiteralExpr{Value: types.NewInt(v)}
		p.nextToken()
	case TokenFloat:
		v, err := strconv.ParseFloat(p.current.Literal, 64)
		if err != nil {
			p.errorf("invalid float literal %q", p.current.Literal)
		}
		expr = &LiteralExpr{Value: types.NewFloat(v)}
		p.nextToken()
	case TokenStringLit:
		expr = &LiteralExpr{Value: types.NewText(p.current.Literal)}
		p.nextToken()
	case TokenTrue:
		expr = &LiteralExpr{Value: types.NewBool(true)}
		p.nextToken()
	case TokenFalse:
		expr = &LiteralExpr{Value: types.NewBool(false)}
		p.nextToken()
	case TokenNull:
		expr = &LiteralExpr{Value: types.NullValue(types.Int64)}
		p.nextToken()
	case TokenLParen:
		p.nextToken()
		expr = p.parseExpr(0)
		if !p.expect(TokenRParen) {
			return expr
		}
	default:
		p.errorf("unexpected token in expression: %s", p.current.Type)
		p.nextToken()
		return expr
	}

	return p.parseIsPostfix(expr)
}

// parseIsPostfix consumes a trailing `IS [NOT] (TRUE|FALSE|NULL)`, which
// binds tighter than any binary operator.
func (p *Parser) parseIsPostfix(operand Expr) Expr {
	for p.current.Type == TokenIs {
		p.nextToken()
		not := false
		if p.current.Type == TokenNot {
			not = true
			p.nextToken()
		}
		var target IsTarget
		switch p.current.Type {
		case TokenTrue:
			target = IsTrue
		case TokenFalse:
			target = IsFalse
		case TokenNull:
			target = IsNullTarget
		default:
			p.errorf("IS must be followed by TRUE, FALSE, or NULL, got %s", p.current.Type)
			return operand
		}
		p.nextToken()
		operand = &IsExpr{Operand: operand, Not: not, Target: target}
	}
	return operand
}
