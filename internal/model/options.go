package model

const (
	// OptionReplacement overrides the endpoint class for one call site.
	OptionReplacement = "replacement"
	// OptionType is the native worker execution mode ("classic" or "module").
	OptionType = "type"
	// TypeModule is the execution mode forced in development.
	TypeModule = "module"
)

// WorkerOptions is the loosely typed options literal of a call site.
type WorkerOptions map[string]any

// Replacement returns the per-call endpoint class override.
func (o WorkerOptions) Replacement() (any, bool) {
	v, ok := o[OptionReplacement]
	return v, ok
}

// Forwarded returns the options passed through to the native constructor:
// everything except the replacement override.
func (o WorkerOptions) Forwarded() WorkerOptions {
	out := make(WorkerOptions, len(o))

	for k, v := range o {
		if k == OptionReplacement {
			continue
		}

		out[k] = v
	}

	return out
}
