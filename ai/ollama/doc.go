// Package ollama provides AI service implementations using Ollama's native
// API rather than its OpenAI-compatible endpoint.
package ollama
