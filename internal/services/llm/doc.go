// Package llm wraps the chat-completion endpoint used for transcript
// summarization. It owns timeout, retry, and rate-limit backoff behavior so
// callers issue one logical completion per call.
package llm
