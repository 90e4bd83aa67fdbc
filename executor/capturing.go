package executor

import (
	"bytes"
	"context"
	"fmt"
)

type Statement struct {
	Query string
	Args  []interface{}
}

func (s Statement) String() string {
	if len(s.Args) == 0 {
		return s.Query
	}

	var buf bytes.Buffer
	buf.WriteString(s.Query)
	buf.WriteString(" -- args: ")
	for i := range s.Args {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(fmt.Sprintf("%#v", s.Args[i]))
	}

	return buf.String()
}

// Capturing records statements instead of running them. It backs the pretend
// operations of the migrator.
type Capturing struct {
	statements []Statement
}

var _ Executor = (*Capturing)(nil)

func NewCapturing() *Capturing {
	return &Capturing{}
}

func (c *Capturing) Exec(_ context.Context, query string, args ...interface{}) error {
	c.statements = append(c.statements, Statement{Query: query, Args: args})
	return nil
}

func (c *Capturing) Pretending() bool {
	return true
}

func (c *Capturing) Captured() []Statement {
	result := make([]Statement, len(c.statements))
	copy(result, c.statements)
	return result
}

func (c *Capturing) Statements() []string {
	result := make([]string, 0, len(c.statements))
	for i := range c.statements {
		result = append(result, c.statements[i].String())
	}
	return result
}

func (c *Capturing) Reset() {
	c.statements = nil
}
