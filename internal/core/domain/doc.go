// Package domain contains the core types of the verbatim pipeline:
// utterances produced by transcription, chunks produced by the context
// chunker, retrieval results, and index metadata. It has no dependencies
// on adapters or external services.
package domain
