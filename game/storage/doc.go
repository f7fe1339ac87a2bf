// Package storage provides the key-value store game saves and sessions are
// written to.
//
// A Store maps slash-separated keys such as "ab12/gameState" to opaque byte
// values. MemoryStore keeps everything in a map and is used by tests and by
// servers started without a data directory. FileStore writes one file per
// key under a root directory.
package storage
