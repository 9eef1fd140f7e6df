package pack

import (
	"bytes"
	"encoding/json"
)

// Kind classifies a byte stream handed to Install.
type Kind int

const (
	KindUnknown Kind = iota
	KindPack
	KindCollectionArchive
	KindCollectionJSON
)

var sqliteHeader = []byte("SQLite format 3\x00")
var gzipMagic = []byte{0x1f, 0x8b}

// detectKind sniffs b (the first bytes of a would-be install source) and
// classifies it, in order: SQLite header -> pack file; gzip magic ->
// packed collection archive (.pack-collection is tar+gzip); otherwise a
// JSON-decode attempt -> collection definition. No extension is consulted
// here; callers that have a path use its extension only as a hint for
// error messages, never for dispatch.
func detectKind(b []byte) Kind {
	if bytes.HasPrefix(b, sqliteHeader) {
		return KindPack
	}
	if bytes.HasPrefix(b, gzipMagic) {
		return KindCollectionArchive
	}
	if json.Valid(bytes.TrimSpace(b)) && len(bytes.TrimSpace(b)) > 0 {
		return KindCollectionJSON
	}
	return KindUnknown
}
