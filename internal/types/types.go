// README: Common value types shared across modules.
package types

// ID is an opaque entity identifier (UUID for rows created here, arbitrary
// text for rows inherited from the legacy table).
type ID string

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64
	Lng float64
}
