package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/titanous/json5"

	m "workerlink.dev/pkg/workerlink/internal/model"
)

// classPattern accepts identifiers and dotted member paths such as
// `globalThis.MyWorker`; anything else would inject code into the rewrite.
var classPattern = regexp.MustCompile(`^[A-Za-z_$][\w$]*(\.[A-Za-z_$][\w$]*)*$`)

// ParseOptions decodes a relaxed (JSON5) options literal. Empty text yields
// an empty mapping.
func ParseOptions(raw string) (m.WorkerOptions, error) {
	opts := m.WorkerOptions{}

	if strings.TrimSpace(raw) == "" {
		return opts, nil
	}

	if err := json5.Unmarshal([]byte(raw), &opts); err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrMalformedOptions, raw, err)
	}

	if opts == nil {
		return nil, fmt.Errorf("%w: %q is not an object literal", ErrMalformedOptions, raw)
	}

	return opts, nil
}

// ApplyMode forces module workers in development, merging into opts.
func ApplyMode(opts m.WorkerOptions, mode m.BuildMode) m.WorkerOptions {
	if opts == nil {
		opts = m.WorkerOptions{}
	}

	if mode.IsDevelopment() {
		opts[m.OptionType] = m.TypeModule
	}

	return opts
}

// ResolveClass picks the endpoint class: the per-call replacement override
// wins over the configured default for kind.
func ResolveClass(opts m.WorkerOptions, kind m.WorkerKind, plugin m.PluginOptions) (string, error) {
	class := plugin.DefaultClass(kind)

	if raw, ok := opts.Replacement(); ok {
		override, isString := raw.(string)
		if !isString {
			return "", fmt.Errorf("%w: %s must be a string, got %T", ErrMalformedOptions, m.OptionReplacement, raw)
		}

		if override != "" {
			class = override
		}
	}

	if !classPattern.MatchString(class) {
		return "", fmt.Errorf("%w: %q is not a valid class name", ErrMalformedOptions, class)
	}

	return class, nil
}

// EncodeOptions renders the forwarded options as a JSON object literal, or
// an empty string when nothing is forwarded.
func EncodeOptions(opts m.WorkerOptions) (string, error) {
	forwarded := opts.Forwarded()
	if len(forwarded) == 0 {
		return "", nil
	}

	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(forwarded); err != nil {
		return "", fmt.Errorf("encode worker options: %w", err)
	}

	return strings.TrimSuffix(buf.String(), "\n"), nil
}
