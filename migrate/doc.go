// Package migrate copies the records of one vector collection into another,
// re-embedding each record's text with a new embedding model on the way.
//
// A Coordinator pages through the source with a CursorReader, embeds each
// page through an EmbeddingClient and writes the results with a
// CollectionWriter. Records that cannot be embedded are skipped and counted
// rather than failing the run. Writes are upserts keyed by the source id,
// so a failed run can simply be started again.
package migrate
