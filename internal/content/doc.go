// Package content owns the editorial side of the pipeline: the prompt pack
// sent to the LLM, validation of the generated package, and rendering of
// the WordPress post body and slug.
package content
