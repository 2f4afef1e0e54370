package nmea

// GGA field positions, 1-based.
const (
	FieldTime = iota + 1
	FieldLatitude
	FieldLatitudeHemisphere
	FieldLongitude
	FieldLongitudeHemisphere
	FieldFixQuality
	FieldSatellites
	FieldHDOP
	FieldAltitude
	FieldAltitudeUnit
	FieldGeoidSeparation
	FieldGeoidSeparationUnit
	FieldDGPSAge
	FieldDGPSStation

	// GGAFieldCount is the number of fields of a GGA sentence.
	GGAFieldCount = FieldDGPSStation
)

// FieldNames maps GGA field names to their positions.
var FieldNames = map[string]int{
	"time":                 FieldTime,
	"latitude":             FieldLatitude,
	"latitude_hemisphere":  FieldLatitudeHemisphere,
	"longitude":            FieldLongitude,
	"longitude_hemisphere": FieldLongitudeHemisphere,
	"fix_quality":          FieldFixQuality,
	"satellites":           FieldSatellites,
	"hdop":                 FieldHDOP,
	"altitude":             FieldAltitude,
	"altitude_unit":        FieldAltitudeUnit,
	"geoid_separation":     FieldGeoidSeparation,
	"geoid_unit":           FieldGeoidSeparationUnit,
	"dgps_age":             FieldDGPSAge,
	"dgps_station":         FieldDGPSStation,
}
