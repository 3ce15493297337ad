// Package config loads, normalizes, and validates podtenuki configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, loads a .env file, and honours environment fallbacks such as
// AUPHONIC_API_KEY, OPENAI_API_KEY and GOOGLE_APPLICATION_CREDENTIALS.
// Validation reports every problem at once so a misconfigured run can be fixed
// in a single edit.
package config
