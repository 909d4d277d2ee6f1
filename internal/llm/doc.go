// Package llm turns user input into structured records through a language model.
// It supports OpenAI, Anthropic and Gemini providers behind the Gateway interface,
// with a shared prompt, a tolerant response parser and client-side rate limiting.
// Extraction calls are never retried.
package llm
