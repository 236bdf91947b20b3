// Package service contains the business logic of the RideShare importer:
// decoding an export, resolving references, turning trips into posts and
// upserting them. No SQL lives here; services depend on repo interfaces.
package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/pkordes/rideshare-importer/internal/domain"
)

// ParseExport decodes an export file into driver and city indexes and the
// ordered trip sequence. It returns domain.ErrMalformedInput when data is not
// a JSON object or when drivers, cities or trips is missing or not an array.
//
// A trip element that cannot be decoded into the typed fields does not fail
// the parse; it comes back with RawTrip.Invalid set so the import can report
// it on its own.
func ParseExport(data []byte) (domain.Export, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return domain.Export{}, fmt.Errorf("service.ParseExport: %w: %v", domain.ErrMalformedInput, err)
	}

	drivers, err := collection[domain.Driver](top, "drivers")
	if err != nil {
		return domain.Export{}, fmt.Errorf("service.ParseExport: %w", err)
	}
	cities, err := collection[domain.City](top, "cities")
	if err != nil {
		return domain.Export{}, fmt.Errorf("service.ParseExport: %w", err)
	}
	rawTrips, err := collection[json.RawMessage](top, "trips")
	if err != nil {
		return domain.Export{}, fmt.Errorf("service.ParseExport: %w", err)
	}

	export := domain.Export{
		Drivers: make(map[string]domain.Driver, len(drivers)),
		Cities:  make(map[string]domain.City, len(cities)),
		Trips:   make([]domain.RawTrip, 0, len(rawTrips)),
	}
	// Later duplicates overwrite earlier ones.
	for _, d := range drivers {
		export.Drivers[d.ID.String()] = d
	}
	for _, c := range cities {
		export.Cities[c.ID.String()] = c
	}
	for _, raw := range rawTrips {
		export.Trips = append(export.Trips, decodeTrip(raw))
	}
	return export, nil
}

// collection decodes the array stored under key.
func collection[T any](top map[string]json.RawMessage, key string) ([]T, error) {
	raw, ok := top[key]
	if !ok {
		return nil, fmt.Errorf("%w: missing %q", domain.ErrMalformedInput, key)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, fmt.Errorf("%w: %q is not an array", domain.ErrMalformedInput, key)
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", domain.ErrMalformedInput, key, err)
	}
	return items, nil
}

// decodeTrip decodes one trip element and keeps its compacted bytes. The kept
// bytes are always valid UTF-8 and decode to the same record as raw.
func decodeTrip(raw json.RawMessage) domain.RawTrip {
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		// Already validated by the array decode; keep the bytes as they are.
		compact.Reset()
		compact.Write(raw)
	}

	var trip domain.RawTrip
	if err := json.Unmarshal(raw, &trip); err != nil {
		// Recover what identifies the trip so it can still be reported or filtered.
		var ident struct {
			UUID   domain.FlexString `json:"uuid"`
			Status domain.FlexString `json:"status"`
		}
		_ = json.Unmarshal(raw, &ident)
		trip = domain.RawTrip{
			UUID:    ident.UUID.String(),
			Status:  ident.Status.String(),
			Invalid: fmt.Errorf("%w: trip record: %v", domain.ErrValidation, err),
		}
	}
	trip.Raw = json.RawMessage(toValidUTF8(compact.Bytes()))
	return trip
}

// toValidUTF8 replaces every invalid byte with U+FFFD, as encoding/json does
// when it decodes a string. In valid JSON such bytes only occur inside strings.
func toValidUTF8(b []byte) []byte {
	if utf8.Valid(b) {
		return b
	}
	out := make([]byte, 0, len(b)+8)
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size == 1 {
			out = utf8.AppendRune(out, utf8.RuneError)
		} else {
			out = append(out, b[:size]...)
		}
		b = b[size:]
	}
	return out
}
