package sentiment

import (
	"fmt"
	"strings"

	"github.com/ay5710/cinesense/internal/errors"
)

// Models occasionally decorate the answer instead of returning the bare
// list. ParseAnswer runs a short recovery pipeline: each stage applies one
// more cleanup to the answer and retries the parse. Only when every stage
// fails is the answer treated as a permanent failure for this pass.
func ParseAnswer(raw string) ([][]string, error) {
	stages := []struct {
		name  string
		apply func(string) string
	}{
		{"raw", func(s string) string { return s }},
		{"normalized-quotes", normalizeQuotes},
		{"fence-stripped", stripCodeFences},
	}

	input := raw
	var lastErr error
	for _, stage := range stages {
		input = stage.apply(input)
		tuples, err := parseTupleList(input)
		if err == nil {
			return tuples, nil
		}
		lastErr = err
	}
	return nil, errors.New(fmt.Errorf("unparseable classifier answer: %w", lastErr)).
		Component("sentiment").
		Category(errors.CategoryParsing).
		Build()
}

var quoteNormalizer = strings.NewReplacer(
	"‘", "'",
	"’", "'",
	"“", `"`,
	"”", `"`,
)

func normalizeQuotes(s string) string {
	return quoteNormalizer.Replace(s)
}

// stripCodeFences removes markdown fence lines, including a leading language
// tag such as ```python.
func stripCodeFences(s string) string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// parseTupleList reads a literal of the form
// [('a', 'b'), ('c', 'd', 'e')] into a slice of string tuples.
func parseTupleList(s string) ([][]string, error) {
	p := &tupleParser{input: strings.TrimSpace(s)}
	return p.parseList()
}

type tupleParser struct {
	input string
	pos   int
}

func (p *tupleParser) parseList() ([][]string, error) {
	if err := p.expect('['); err != nil {
		return nil, err
	}
	var tuples [][]string
	for {
		p.skipSpace()
		if p.peek() == ']' {
			p.pos++
			break
		}
		tuple, err := p.parseTuple()
		if err != nil {
			return nil, err
		}
		tuples = append(tuples, tuple)
		p.skipSpace()
		if p.peek() == ',' {
			p.pos++
		}
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return nil, fmt.Errorf("trailing content after list at offset %d", p.pos)
	}
	if len(tuples) == 0 {
		return nil, fmt.Errorf("empty list")
	}
	return tuples, nil
}

func (p *tupleParser) parseTuple() ([]string, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	var fields []string
	for {
		p.skipSpace()
		if p.peek() == ')' {
			p.pos++
			break
		}
		field, err := p.parseString()
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
		p.skipSpace()
		if p.peek() == ',' {
			p.pos++
		}
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty tuple at offset %d", p.pos)
	}
	return fields, nil
}

func (p *tupleParser) parseString() (string, error) {
	quote := p.peek()
	if quote != '\'' && quote != '"' {
		return "", fmt.Errorf("expected quoted string at offset %d", p.pos)
	}
	p.pos++
	var b strings.Builder
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		switch c {
		case '\\':
			if p.pos+1 < len(p.input) {
				p.pos++
				b.WriteByte(p.input[p.pos])
				p.pos++
				continue
			}
			return "", fmt.Errorf("dangling escape at offset %d", p.pos)
		case quote:
			p.pos++
			return b.String(), nil
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	return "", fmt.Errorf("unterminated string at offset %d", p.pos)
}

func (p *tupleParser) expect(c byte) error {
	p.skipSpace()
	if p.peek() != c {
		return fmt.Errorf("expected %q at offset %d", c, p.pos)
	}
	p.pos++
	return nil
}

func (p *tupleParser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *tupleParser) skipSpace() {
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
			break
		}
		p.pos++
	}
}
