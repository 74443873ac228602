// Package merge implements the background merge engine: validation and
// dispatch of merge submissions, the staged job runner that decodes, joins,
// adjusts, and exports audio, and the durable hand-off of results into the
// library before completion is announced.
package merge
