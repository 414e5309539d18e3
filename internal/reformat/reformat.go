// Package reformat runs black with layout protection around it.
//
// The pipeline is: parse, encode every guard, print, black, parse black's output, explode
// comprehensions, decode every guard, print. Everything after black works on the tree parsed
// from black's output, never on the tree that went in.
package reformat

import (
	"context"

	"github.com/cockroachdb/errors"

	"blackguard/internal/black"
	"blackguard/internal/cst"
	"blackguard/internal/explode"
	"blackguard/internal/guard"
	"blackguard/internal/logging"
)

// Pipeline holds the formatter and the guards applied around it.
type Pipeline struct {
	Formatter black.Formatter
	Guards    []*guard.Guard

	// NoExplode turns the comprehension exploder off.
	NoExplode bool
}

// New returns a pipeline with every guard.
func New(formatter black.Formatter) *Pipeline {
	return &Pipeline{Formatter: formatter, Guards: guard.All()}
}

// Reformat formats text. A *black.FormatterError from the formatter is returned unchanged and no
// text is produced.
func (p *Pipeline) Reformat(ctx context.Context, text string, mode black.Mode) (string, error) {
	tree, err := cst.Parse(ctx, text)
	if err != nil {
		return "", err
	}
	for _, g := range p.Guards {
		g.Encode(tree)
	}

	formatted, err := p.Formatter.Format(ctx, tree.Code(), mode)
	if err != nil {
		return "", err
	}

	tree, err = cst.Parse(ctx, formatted)
	if err != nil {
		return "", err
	}
	if !p.NoExplode {
		if err := explode.Comprehensions(tree); err != nil {
			return "", errors.Wrap(err, "explode comprehensions")
		}
	}
	// Guards decode in reverse encode order.
	for i := len(p.Guards) - 1; i >= 0; i-- {
		p.Guards[i].Decode(tree)
	}

	out := tree.Code()
	logging.GuardDebug("reformatted %d bytes into %d bytes", len(text), len(out))
	return out, nil
}

// Reformat runs the default pipeline with formatter.
func Reformat(ctx context.Context, formatter black.Formatter, text string, mode black.Mode) (string, error) {
	return New(formatter).Reformat(ctx, text, mode)
}
