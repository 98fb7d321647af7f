package geo

// LonLat is a WGS84 position in degrees.
type LonLat struct {
	Lon float64
	Lat float64
}

// EPSGWGS84 is the reference system every tile position is expressed in.
const EPSGWGS84 = 4326

// Transformer reprojects native coordinates to WGS84. One transformer is
// built per session and reused for every tile of that session.
type Transformer interface {
	ToWGS84(p Point) (LonLat, error)
	Close() error
}

// Factory builds a Transformer from a source EPSG code.
type Factory interface {
	NewTransformer(epsg int) (Transformer, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(epsg int) (Transformer, error)

// NewTransformer calls f.
func (f FactoryFunc) NewTransformer(epsg int) (Transformer, error) { return f(epsg) }
