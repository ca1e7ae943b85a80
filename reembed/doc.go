// Package reembed regenerates the embeddings of every record in a vector
// store collection, typically after switching embedding models.
//
// Records are read in batches through storage.VectorStore.Scan, embedded
// with one EmbedTexts call per batch and written back with Upsert. Embedding
// calls are rate limited and retried with exponential backoff, and vectors
// are normalized to unit length before they are stored.
package reembed
