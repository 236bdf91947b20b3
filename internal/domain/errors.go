package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the database.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. a trip without a uuid, an unparseable request time).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrMalformedInput is returned when an export file is not valid JSON or lacks
// one of the drivers, cities or trips arrays. It is fatal to the whole run:
// nothing is imported.
var ErrMalformedInput = errors.New("malformed input")

// ErrMissingReference is returned when a trip references a driver or city id
// that is absent from the export's own indexes. It fails that trip only.
var ErrMissingReference = errors.New("missing reference")

// ErrUpstreamWrite is returned when the destination store rejects a create,
// update or metadata write. It fails that trip only.
var ErrUpstreamWrite = errors.New("upstream write failed")
