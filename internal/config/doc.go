// Package config loads, normalizes, and validates Duende Finder configuration.
//
// It supplies repository defaults, expands user paths, reads TOML files, and
// honours environment fallbacks such as MONGODB_URI, GROQ_API_KEY, and
// WORDPRESS_APP_PASSWORD so secrets can stay out of the config file. The
// Config type centralizes every knob the daemon and CLI need: the event store
// backend, the LLM provider chain, WordPress and social credentials, and the
// per-stage batch settings.
//
// Always obtain settings through this package so downstream code receives
// expanded paths, canonical log formats, and clear validation errors.
package config
