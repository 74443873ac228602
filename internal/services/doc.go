// Package services holds cross-cutting helpers shared by the clipforge
// components: the error taxonomy used to classify failures at the API
// boundary (not found, validation, codec, persistence) and context keys
// that thread job identifiers and stage names into structured logs.
package services
