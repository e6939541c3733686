// Package errors provides the structured error system shared by every
// kafkautomation component. It extends Go's standard error handling with
// string-based error codes so callers and the CLI can classify failures
// without string-matching messages.
package errors

// ErrorCode identifies a specific failure condition in the pipeline.
// Codes are string-based for debuggability and natural JSON serialization.
type ErrorCode string

const (
	// Declaration reading errors.

	// CodeMalformedDeclaration indicates a declaration or schema file does
	// not match the expected shape.
	CodeMalformedDeclaration ErrorCode = "MALFORMED_DECLARATION"

	// CodeIO indicates a filesystem or store read/write failed.
	CodeIO ErrorCode = "IO_ERROR"

	// Aggregation errors.

	// CodeUnknownTopicReference indicates an access entry references a topic
	// that is absent from the environment's aggregated topic set.
	CodeUnknownTopicReference ErrorCode = "UNKNOWN_TOPIC_REFERENCE"

	// Schema collection errors.

	// CodePathViolation indicates a schema reference escapes the owning
	// domain's schema directory.
	CodePathViolation ErrorCode = "PATH_VIOLATION"

	// CodeSchemaNotFound indicates a referenced schema file does not exist
	// at its expected path.
	CodeSchemaNotFound ErrorCode = "SCHEMA_NOT_FOUND"

	// Validation errors.

	// CodeNamingConflict indicates one or more resource names are claimed by
	// more than one domain within an environment.
	CodeNamingConflict ErrorCode = "NAMING_CONFLICT"

	// Locking errors.

	// CodeAlreadyLocked indicates a deployment lock acquisition lost to an
	// existing holder.
	CodeAlreadyLocked ErrorCode = "ALREADY_LOCKED"

	// CodeEnvironmentLocked indicates a read-only run found the environment
	// lock held and refused to proceed.
	CodeEnvironmentLocked ErrorCode = "ENVIRONMENT_LOCKED"

	// Emission errors.

	// CodeMissingRequiredParameter indicates a mandatory environment
	// parameter was not supplied to the variable emitter.
	CodeMissingRequiredParameter ErrorCode = "MISSING_REQUIRED_PARAMETER"

	// CodeUnresolvedSchemaPath indicates a catalog schema subject could not
	// be resolved to a concrete file path at emission time.
	CodeUnresolvedSchemaPath ErrorCode = "UNRESOLVED_SCHEMA_PATH"

	// CodeUnresolvedTopicReference indicates a catalog ACL binding could not
	// be resolved to a concrete topic at emission time.
	CodeUnresolvedTopicReference ErrorCode = "UNRESOLVED_TOPIC_REFERENCE"

	// Generic errors.

	// CodeNotFound indicates a requested artifact does not exist.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeInvalidConfig indicates the tool configuration is unusable.
	CodeInvalidConfig ErrorCode = "INVALID_CONFIGURATION"

	// CodeInternal indicates an unclassified internal failure.
	CodeInternal ErrorCode = "INTERNAL_ERROR"
)
