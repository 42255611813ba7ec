package locations

import "math"

const (
	earthRadiusKM = 6371.0
	kmPerDegreeLat = 111.0
)

// haversineKM returns the great-circle distance in kilometers between two
// coordinates.
func haversineKM(lat1, lng1, lat2, lng2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKM * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// boundingBox returns the min/max latitude and longitude of a box that
// contains every point within radiusKM of the center. The longitude span
// widens toward the poles; above ~85 degrees the box degenerates to the full
// longitude range.
func boundingBox(lat, lng, radiusKM float64) (minLat, maxLat, minLng, maxLng float64) {
	latDelta := radiusKM / kmPerDegreeLat
	minLat = lat - latDelta
	maxLat = lat + latDelta

	cosLat := math.Cos(lat * math.Pi / 180)
	if cosLat < 0.087 {
		return minLat, maxLat, -180, 180
	}
	lngDelta := radiusKM / (kmPerDegreeLat * cosLat)
	return minLat, maxLat, lng - lngDelta, lng + lngDelta
}
