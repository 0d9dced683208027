package pl

import (
	"fmt"
	"strconv"

	"github.com/mandubian/ccos-sub008/ccoserr"
	"github.com/mandubian/ccos-sub008/value"
)

// Parse tokenizes and parses PL source into a sequence of top-level forms
// (spec §4.B: "A program is a sequence of top-level forms").
func Parse(src string) ([]value.Value, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, ccoserr.Wrap(ccoserr.KindParseError, err, "lexing failed")
	}
	p := &parser{toks: toks}
	var forms []value.Value
	for !p.atEOF() {
		v, err := p.parseForm()
		if err != nil {
			return nil, ccoserr.Wrap(ccoserr.KindParseError, err, "parsing failed")
		}
		forms = append(forms, v)
	}
	return forms, nil
}

// ParseOne parses exactly one form and reports an error if trailing input
// remains; for single-expression contexts (the module loader uses Parse).
func ParseOne(src string) (value.Value, error) {
	forms, err := Parse(src)
	if err != nil {
		return value.Nil, err
	}
	if len(forms) != 1 {
		return value.Nil, ccoserr.New(ccoserr.KindParseError, "expected exactly one form, got %d", len(forms))
	}
	return forms[0], nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) atEOF() bool { return p.cur().kind == tokEOF }

func (p *parser) cur() token { return p.toks[p.pos] }

func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) parseForm() (value.Value, error) {
	t := p.cur()
	switch t.kind {
	case tokLParen:
		return p.parseSeq(tokRParen, value.ListOf)
	case tokLBracket:
		return p.parseSeq(tokRBracket, value.VectorOf)
	case tokLBrace:
		return p.parseMap()
	case tokString:
		p.advance()
		return value.String(t.text), nil
	case tokNumber:
		p.advance()
		return parseNumber(t.text)
	case tokKeyword:
		p.advance()
		return value.Keyword(t.text), nil
	case tokSymbol:
		p.advance()
		return parseSymbolLike(t.text), nil
	default:
		return value.Nil, fmt.Errorf("unexpected token %q at line %d", t.text, t.line)
	}
}

func parseNumber(text string) (value.Value, error) {
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return value.Int(i), nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return value.Nil, err
	}
	return value.Float(f), nil
}

func parseSymbolLike(text string) value.Value {
	switch text {
	case "true":
		return value.Bool(true)
	case "false":
		return value.Bool(false)
	case "nil":
		return value.Nil
	default:
		return value.Symbol(text)
	}
}

func (p *parser) parseSeq(closing tokenKind, build func([]value.Value) value.Value) (value.Value, error) {
	open := p.advance()
	var items []value.Value
	for {
		if p.atEOF() {
			return value.Nil, fmt.Errorf("unterminated form opened at line %d", open.line)
		}
		if p.cur().kind == closing {
			p.advance()
			return build(items), nil
		}
		v, err := p.parseForm()
		if err != nil {
			return value.Nil, err
		}
		items = append(items, v)
	}
}

// parseMap parses `{:k v …}` literal maps. Keys must themselves parse to a
// Keyword, String, or Integer literal (spec §3 MapKey domain); anything else
// is a parse error.
func (p *parser) parseMap() (value.Value, error) {
	open := p.advance()
	var pairs []value.MapEntry
	for {
		if p.atEOF() {
			return value.Nil, fmt.Errorf("unterminated map opened at line %d", open.line)
		}
		if p.cur().kind == tokRBrace {
			p.advance()
			return value.Map(pairs...), nil
		}
		keyExpr, err := p.parseForm()
		if err != nil {
			return value.Nil, err
		}
		key, err := toMapKey(keyExpr)
		if err != nil {
			return value.Nil, err
		}
		if p.atEOF() || p.cur().kind == tokRBrace {
			return value.Nil, fmt.Errorf("map literal missing value for key at line %d", open.line)
		}
		valExpr, err := p.parseForm()
		if err != nil {
			return value.Nil, err
		}
		pairs = append(pairs, value.Entry(key, valExpr))
	}
}

func toMapKey(v value.Value) (value.MapKey, error) {
	switch v.Kind() {
	case value.KindKeyword:
		s, _ := v.Str()
		return value.KeywordKey(s), nil
	case value.KindString:
		s, _ := v.Str()
		return value.StringKey(s), nil
	case value.KindInteger:
		i, _ := v.Int()
		return value.IntKey(i), nil
	case value.KindSymbol:
		// Bare symbol keys only occur in destructuring patterns (e.g. the
		// `& rest` rest-marker in a map pattern); ordinary map literals
		// always use keyword/string/integer keys.
		s, _ := v.Str()
		return value.StringKey(s), nil
	default:
		return value.MapKey{}, fmt.Errorf("map literal key must be keyword, string, or integer, got %s", v.Kind())
	}
}
