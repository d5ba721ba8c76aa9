// Package openai implements the ai interfaces against OpenAI-compatible
// APIs (hosted OpenAI, Ollama, LocalAI, vLLM). Clients are built with
// langchaingo; one client per service so embedding and chat can point at
// different hosts and models.
package openai
