// Package domain implements the worker call-site rewriter, the virtual module
// providers and the plugin hooks that tie them to a host build pipeline.
package domain

import (
	"context"
	"fmt"
	"strings"

	"workerlink.dev/pkg/workerlink/internal/ctxlog"
	m "workerlink.dev/pkg/workerlink/internal/model"
	"workerlink.dev/pkg/workerlink/pkg/magicstring"
	"workerlink.dev/pkg/workerlink/pkg/sourcemap"
)

// Rewriter rewrites worker-construction expressions into native worker
// instantiation wrapped by the RPC library.
type Rewriter interface {
	// Scan lists the worker-construction expressions of code without editing it.
	Scan(ctx context.Context, code string) ([]m.Match, error)

	// Transform rewrites every match of input. It returns a nil result when
	// the file contains nothing to rewrite.
	Transform(ctx context.Context, cfg m.BuildConfig, input m.TransformInput) (*m.TransformResult, error)
}

type rewriter struct{}

// NewRewriter creates a Rewriter.
func NewRewriter() Rewriter {
	return &rewriter{}
}

func (r *rewriter) Scan(ctx context.Context, code string) ([]m.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return Scan(code), nil
}

func (r *rewriter) Transform(ctx context.Context, cfg m.BuildConfig, input m.TransformInput) (*m.TransformResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !ContainsTrigger(input.Code) {
		return nil, nil
	}

	matches := Scan(input.Code)
	if len(matches) == 0 {
		return nil, nil
	}

	logger := ctxlog.FromContext(ctx)
	plugin := cfg.Plugin.WithDefaults()
	ms := magicstring.New(input.Code)

	for _, match := range matches {
		replacement, err := rewriteMatch(match, cfg.Mode, plugin)
		if err != nil {
			return nil, &TransformError{File: input.ID, Line: match.Line, Column: match.Column, Err: err}
		}

		if err := ms.Overwrite(match.Start, match.End, replacement); err != nil {
			return nil, &TransformError{File: input.ID, Line: match.Line, Column: match.Column, Err: err}
		}

		logger.Debug("rewrote worker call site",
			"file", input.ID, "line", match.Line, "kind", match.Kind, "specifier", match.Specifier)
	}

	if err := ms.Prepend(WrapImport(plugin.WrapModule)); err != nil {
		return nil, fmt.Errorf("insert wrap import into %s: %w", input.ID, err)
	}

	sm := ms.GenerateMap(magicstring.MapOptions{
		Source:         string(input.ID),
		File:           string(input.ID),
		IncludeContent: true,
		Hires:          plugin.SourceMapHires,
	})

	if len(input.UpstreamMap) > 0 {
		composed, err := sourcemap.Compose(input.UpstreamMap, sm)
		if err != nil {
			logger.Warn("failed to compose with upstream source map, using own map",
				"file", input.ID, "error", err)
		} else {
			sm = composed
		}
	}

	return &m.TransformResult{
		Code:    ms.String(),
		Map:     sm,
		Matches: matches,
	}, nil
}

// WrapImport is the import statement prepended to every rewritten file.
func WrapImport(module string) string {
	return fmt.Sprintf("import {wrap as %s} from %s;\n", wrapIdentifier, quoteJS(module))
}

func rewriteMatch(match m.Match, mode m.BuildMode, plugin m.PluginOptions) (string, error) {
	opts, err := ParseOptions(match.Options)
	if err != nil {
		return "", err
	}

	opts = ApplyMode(opts, mode)

	class, err := ResolveClass(opts, match.Kind, plugin)
	if err != nil {
		return "", err
	}

	encoded, err := EncodeOptions(opts)
	if err != nil {
		return "", err
	}

	var b strings.Builder

	b.WriteString(wrapIdentifier)
	b.WriteString("(new ")
	b.WriteString(class)
	b.WriteString("(new URL('")
	b.WriteString(PrefixFor(match.Kind))
	b.WriteString(requote(match.Specifier, match.Quote()))
	b.WriteString("', ")
	b.WriteString(importMetaURL)
	b.WriteString(")")

	if encoded != "" {
		b.WriteString(", ")
		b.WriteString(encoded)
	}

	b.WriteString(")")

	if match.Kind == m.KindShared {
		// Shared workers talk through their port; dedicated workers are the endpoint.
		b.WriteString(".port")
	}

	b.WriteString(")")

	return b.String(), nil
}

// requote makes the body of a literal delimited by quote safe inside single
// quotes. Escape sequences are kept as written; template literals are not
// interpolated.
func requote(body string, quote byte) string {
	if quote == '\'' {
		return body
	}

	var b strings.Builder

	escaped := false

	for _, r := range body {
		switch {
		case escaped:
			b.WriteRune(r)

			escaped = false
		case r == '\\':
			b.WriteRune(r)

			escaped = true
		default:
			writeSingleQuoted(&b, r)
		}
	}

	return b.String()
}
