// Package archive exports a vector store collection as zstd-compressed JSON
// lines and imports such archives back.
//
// An archive holds one JSON object per record in Scan order. Vectors are
// included on request, so an archive can either be a portable text dump or a
// full backup that restores without calling an embedding service.
package archive
