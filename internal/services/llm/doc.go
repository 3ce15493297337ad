// Package llm provides an OpenAI chat-completions client.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.Complete: send system/user prompts, receive text plus token usage.
// Client.HealthCheck: one-token completion verifying API key and model.
// StripCodeFence: unwrap fenced markdown answers.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors, empty responses and network
// timeouts with exponential backoff (base 1s, max 10s, up to 5 attempts by
// default). A Retry-After header overrides the computed delay. Context
// cancellation aborts retries immediately.
//
// # Usage
//
// When a usage.Tracker is attached, every successful completion records its
// prompt and completion token counts against the reported model.
package llm
