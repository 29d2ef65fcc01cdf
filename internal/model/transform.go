package model

import "workerlink.dev/pkg/workerlink/pkg/sourcemap"

// TransformInput is one file handed to the transform hook.
type TransformInput struct {
	ID   Path
	Code string
	// UpstreamMap is the JSON source map of a previous pipeline stage, if any.
	UpstreamMap []byte
}

// TransformResult is the rewritten code and its source map. A nil result
// means the file was left untouched.
type TransformResult struct {
	Code    string
	Map     *sourcemap.Map
	Matches []Match
}
