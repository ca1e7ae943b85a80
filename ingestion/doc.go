// Package ingestion loads feed items into a vector store.
//
// A Pipeline fetches items from one or more feed.Source values, skips items
// that are already stored, embeds the rest and upserts them as core.Record
// values. Two existence checks are supported:
//   - DedupKey derives the record key from the item link and looks it up
//     directly, so re-ingesting a link is idempotent by construction.
//   - DedupProbe runs a top-1 similarity search restricted to the item link,
//     using the embedding of a fixed probe phrase.
//
// Feed fetches run concurrently on a worker pool, but items are processed in
// source order. The first fetch, embedding or store error aborts the pass;
// the number of records persisted before the failure is returned with it.
//
// Start runs a pass in the background and returns a Job that callers wait on.
package ingestion
