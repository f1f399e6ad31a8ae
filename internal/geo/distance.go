package geo

import "math"

// Радиус Земли в километрах.
const earthRadiusKm = 6371

// DistanceKm возвращает расстояние большого круга между двумя точками
// по формуле гаверсинусов, округлённое до двух знаков после запятой.
// Функция чистая: симметрична и равна нулю для совпадающих точек.
func DistanceKm(latA, lngA, latB, lngB float64) float64 {
	lat1 := toRadians(latA)
	lat2 := toRadians(latB)
	dLat := toRadians(latB - latA)
	dLng := toRadians(lngB - lngA)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)

	d := 2 * earthRadiusKm * math.Asin(math.Sqrt(h))

	return math.Round(d*100) / 100
}

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}
