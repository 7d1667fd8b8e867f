// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package directive

import (
	"fmt"
	"go/parser"
	"go/scanner"
	"go/token"
	"strconv"
	"strings"
)

// Parse parses the arguments following Prefix. Errors are *ConfigError with
// offsets relative to args.
func Parse(args string, features Features) (Config, error) {
	p := newParser(args, features)
	return p.parse()
}

type argParser struct {
	src      string
	file     *token.File
	scanner  scanner.Scanner
	features Features

	// scanErr is the first error reported by the scanner.
	scanErr *ConfigError

	off int
	tok token.Token
	lit string
}

func newParser(src string, features Features) *argParser {
	p := &argParser{src: src, features: features}
	p.file = token.NewFileSet().AddFile("", -1, len(src))
	p.scanner.Init(p.file, []byte(src), p.scanError, 0)
	return p
}

func (p *argParser) scanError(pos token.Position, msg string) {
	if p.scanErr == nil {
		p.scanErr = p.errorf(pos.Offset, len(p.src), "%s", msg)
	}
}

func (p *argParser) next() {
	for {
		pos, tok, lit := p.scanner.Scan()
		// Skip the semicolon the scanner inserts at the end of input.
		if tok == token.SEMICOLON && lit == "\n" {
			continue
		}
		p.off, p.tok, p.lit = p.file.Offset(pos), tok, lit
		return
	}
}

// end is the offset just past the current token.
func (p *argParser) end() int {
	if p.tok == token.EOF {
		return len(p.src)
	}
	if p.lit != "" {
		return p.off + len(p.lit)
	}
	return p.off + len(p.tok.String())
}

func (p *argParser) describe() string {
	switch {
	case p.tok == token.EOF:
		return "end of directive"
	case p.lit != "":
		return fmt.Sprintf("`%s`", p.lit)
	default:
		return fmt.Sprintf("`%s`", p.tok)
	}
}

func (p *argParser) errorf(off, end int, format string, args ...interface{}) *ConfigError {
	if end < off {
		end = off
	}
	return &ConfigError{
		Offset:   off,
		End:      end,
		Msg:      fmt.Sprintf(format, args...),
		Expected: ExpectedForms(p.features),
	}
}

func (p *argParser) parse() (Config, error) {
	cfg := Default()
	p.next()
	for p.tok != token.EOF {
		if err := p.item(&cfg); err != nil {
			return Config{}, err
		}
		switch p.tok {
		case token.COMMA:
			p.next()
		case token.EOF:
		default:
			return Config{}, p.fail(p.errorf(p.off, p.end(), "unexpected %s", p.describe()))
		}
	}
	if p.scanErr != nil {
		return Config{}, p.scanErr
	}
	return cfg, nil
}

// fail prefers the scanner's own report, which is more precise about
// malformed literals than the token that follows it.
func (p *argParser) fail(err *ConfigError) *ConfigError {
	if p.scanErr != nil {
		return p.scanErr
	}
	return err
}

func (p *argParser) item(cfg *Config) error {
	switch {
	case p.tok == token.INT:
		n, err := p.attempts(p.off, p.end(), p.lit)
		if err != nil {
			return err
		}
		cfg.Attempts = n
		p.next()
		return nil

	case p.tok == token.SUB:
		start := p.off
		p.next()
		if p.tok == token.INT {
			return p.errorf(start, p.end(), "attempts must be a positive integer, found `-%s`", p.lit)
		}
		return p.fail(p.errorf(start, p.end(), "unexpected `-`"))

	case p.tok == token.IDENT && p.lit == "times":
		return p.times(cfg)

	case p.tok == token.IDENT && p.lit == "async":
		if !p.features.Async {
			return p.errorf(p.off, p.end(), "`async` is not supported by this build of flakytest")
		}
		cfg.Model = Async
		cfg.AsyncOptions = nil
		p.next()
		if p.tok != token.LPAREN {
			return nil
		}
		opts, err := p.asyncOptions()
		if err != nil {
			return err
		}
		cfg.AsyncOptions = opts
		return nil

	case p.tok == token.IDENT:
		return p.errorf(p.off, p.end(), "unknown option `%s`", p.lit)

	default:
		return p.fail(p.errorf(p.off, p.end(), "unexpected %s", p.describe()))
	}
}

func (p *argParser) times(cfg *Config) error {
	start := p.off
	p.next()
	if p.tok != token.ASSIGN {
		return p.fail(p.errorf(start, p.end(), "`times` must be followed by `= <int>`, found %s", p.describe()))
	}
	p.next()

	valueStart := p.off
	negative := false
	if p.tok == token.SUB || p.tok == token.ADD {
		negative = p.tok == token.SUB
		p.next()
	}
	if p.tok != token.INT {
		return p.fail(p.errorf(valueStart, p.end(), "`times` expects an integer literal, found %s", p.describe()))
	}
	if negative {
		return p.errorf(valueStart, p.end(), "attempts must be a positive integer, found `-%s`", p.lit)
	}
	n, err := p.attempts(valueStart, p.end(), p.lit)
	if err != nil {
		return err
	}
	cfg.Attempts = n
	p.next()
	return nil
}

func (p *argParser) attempts(off, end int, lit string) (int, error) {
	v, err := strconv.ParseInt(lit, 0, 32)
	if err != nil {
		return 0, p.errorf(off, end, "attempts `%s` out of range", lit)
	}
	if v < 1 {
		return 0, p.errorf(off, end, "attempts must be a positive integer, found `%s`", lit)
	}
	return int(v), nil
}

// asyncOptions splits the parenthesised list following async at top level
// commas. The current token is the opening parenthesis.
func (p *argParser) asyncOptions() ([]string, error) {
	open := p.off
	opts := make([]string, 0)
	depth := 0
	start, last := -1, -1

	flush := func(closing bool) error {
		if start < 0 {
			if closing {
				return nil
			}
			return p.errorf(p.off, p.end(), "empty option in `async(...)`")
		}
		text := strings.TrimSpace(p.src[start:last])
		if _, err := parser.ParseExpr(text); err != nil {
			return p.errorf(start, last, "invalid async option `%s`: %s", text, firstLine(err))
		}
		opts = append(opts, text)
		start, last = -1, -1
		return nil
	}

	p.next()
	for {
		switch p.tok {
		case token.EOF:
			return nil, p.fail(p.errorf(open, len(p.src), "unclosed `(` in `async(...)`"))
		case token.LPAREN, token.LBRACK, token.LBRACE:
			depth++
		case token.RPAREN, token.RBRACK, token.RBRACE:
			if depth == 0 {
				if p.tok != token.RPAREN {
					return nil, p.errorf(p.off, p.end(), "unbalanced %s in `async(...)`", p.describe())
				}
				if err := flush(true); err != nil {
					return nil, err
				}
				p.next()
				return opts, nil
			}
			depth--
		case token.COMMA:
			if depth == 0 {
				if err := flush(false); err != nil {
					return nil, err
				}
				p.next()
				continue
			}
		}
		if start < 0 {
			start = p.off
		}
		last = p.end()
		p.next()
	}
}

func firstLine(err error) string {
	if list, ok := err.(scanner.ErrorList); ok && len(list) > 0 {
		return list[0].Msg
	}
	msg := err.Error()
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return msg
}
