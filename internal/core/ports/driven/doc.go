// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports): embedding providers, the generation model,
// the chunk store and the PDF extractor.
package driven
