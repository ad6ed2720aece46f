// Package model holds the typed records returned by the client RPCs and the
// decoders that build them from reply trees.
//
// Ownership boundary:
// - enums shared with request encoding (Component, RunMode)
// - daemon-reported records (HostInfo, ProjectInfo, TaskResult, ...)
// - lenient decoders: unknown children are ignored, unparsable numbers stay zero
package model
