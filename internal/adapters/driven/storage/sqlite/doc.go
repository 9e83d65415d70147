// Package sqlite stores the vector collection in collection.db inside the
// index directory, using the pure Go modernc.org/sqlite driver.
//
// Each row holds a chunk id, its text and source metadata, and the
// embedding as a little-endian float32 BLOB. Search loads the vectors and
// ranks them by cosine similarity in Go.
//
// The schema comes from the embedded migrations package. The database uses
// the rollback journal rather than WAL so that a closed collection is a
// single file that snapshot export can archive as is.
package sqlite
