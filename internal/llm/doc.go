// Package llm implements the extraction engine: provider clients that turn
// normalized input into a candidate expense via structured model output,
// plus the ordered-fallback extractor that sequences them.
package llm
