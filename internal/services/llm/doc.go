// Package llm talks to the chat-completion providers that write event content.
//
// Groq and Gemini both expose OpenAI-compatible chat endpoints and share the
// HTTP Client in this package. Anthropic is reached through llmkit. A Chain
// tries the configured providers in order and returns the first usable
// completion together with the provider that produced it.
//
// # Retry Behaviour
//
// Client retries HTTP 408, 429 and 5xx responses, empty completions, and
// network timeouts with exponential backoff (base 1s, max 10s). A Retry-After
// header overrides the computed delay. Context cancellation aborts retries
// immediately. Authentication failures are reported as configuration errors
// so the workflow does not keep retrying an event that can never succeed.
//
// # JSON Payloads
//
// DecodeJSON tolerates the usual model quirks: code fences, prose around the
// object, and leading commentary.
package llm
