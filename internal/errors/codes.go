// Package errors provides the structured error type shared by every
// component boundary: pack store, migration runner, pack manager,
// collection client, and searcher all return *Error rather than bare
// wrapped errors once they cross a public API.
package errors

// Kind is a stable, closed taxonomy of error kinds. Callers should
// branch on Kind (via Is/As) rather than parsing Message.
type Kind string

const (
	// NotFound covers a missing pack, file, collection, or library name.
	NotFound Kind = "NOT_FOUND"
	// InvalidFormat means the bytes are not a valid pack or archive.
	InvalidFormat Kind = "INVALID_FORMAT"
	// SchemaVersionTooNew means the pack requires a newer engine.
	SchemaVersionTooNew Kind = "SCHEMA_VERSION_TOO_NEW"
	// MigrationRequired means the pack was opened read-only but needs migration.
	MigrationRequired Kind = "MIGRATION_REQUIRED"
	// HashMismatch means downloaded content does not match its declared hash.
	HashMismatch Kind = "HASH_MISMATCH"
	// IntegrityFailure means Verify() found the stored hash no longer matches.
	IntegrityFailure Kind = "INTEGRITY_FAILURE"
	// AlreadyExists means install was attempted without force over an existing name.
	AlreadyExists Kind = "ALREADY_EXISTS"
	// Transport covers network timeouts and 4xx/5xx responses.
	Transport Kind = "TRANSPORT"
	// Canceled means a cooperative cancellation signal fired.
	Canceled Kind = "CANCELED"
	// ModelLoad means the embedder or reranker failed to load.
	ModelLoad Kind = "MODEL_LOAD"
	// Internal means an invariant was violated; should not occur.
	Internal Kind = "INTERNAL"
)

// Category groups kinds for coarse-grained handling (logging level,
// whether to surface to a human vs. retry silently).
type Category string

const (
	CategoryResource   Category = "RESOURCE"   // NotFound, AlreadyExists
	CategoryFormat     Category = "FORMAT"     // InvalidFormat, SchemaVersionTooNew, MigrationRequired
	CategoryIntegrity  Category = "INTEGRITY"  // HashMismatch, IntegrityFailure
	CategoryNetwork    Category = "NETWORK"    // Transport
	CategoryControl    Category = "CONTROL"    // Canceled
	CategoryModel      Category = "MODEL"      // ModelLoad
	CategoryInternal   Category = "INTERNAL"   // Internal
)

// Severity is how urgently an operator should care.
type Severity string

const (
	SeverityFatal   Severity = "FATAL"
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
)

func categoryForKind(k Kind) Category {
	switch k {
	case NotFound, AlreadyExists:
		return CategoryResource
	case InvalidFormat, SchemaVersionTooNew, MigrationRequired:
		return CategoryFormat
	case HashMismatch, IntegrityFailure:
		return CategoryIntegrity
	case Transport:
		return CategoryNetwork
	case Canceled:
		return CategoryControl
	case ModelLoad:
		return CategoryModel
	default:
		return CategoryInternal
	}
}

func severityForKind(k Kind) Severity {
	switch k {
	case Internal, IntegrityFailure, SchemaVersionTooNew:
		return SeverityFatal
	case Canceled:
		return SeverityWarning
	default:
		return SeverityError
	}
}

func retryableForKind(k Kind) bool {
	return k == Transport
}
