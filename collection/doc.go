// Package collection implements a document collection: schema-typed
// documents stored in an append-only blob log and indexed by the index
// package.
//
// Document IDs are dense and assigned in insertion order starting at 0. An
// insert validates every document against every index before anything is
// written, indexes the batch, then appends the encoded documents to the
// blob log. The blob metadata of a document is published only after its
// flush completed, so readers never observe a document whose body is not
// durable.
//
// Delete hides documents without touching the blob log. If the blob write
// of an insert fails after the batch was indexed, its IDs are hidden the
// same way. Hidden IDs are removed from every filter result and behave like
// missing documents. They are persisted in a delete vector that tells
// deleted documents, whose records are still in the log, apart from IDs that
// were never written.
//
// On Open the indexes are rebuilt by scanning the blob log. IDs that were
// never written are skipped, so every document keeps the ID it was
// inserted under.
//
// # Concurrency
//
// Inserts are serialized by the collection. Filters and reads run
// concurrently with each other and only wait for an insert in progress.
package collection
