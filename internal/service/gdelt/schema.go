package gdelt

// The events archive has shipped with more than one column layout. Rather
// than manipulating column names at runtime, each known revision is a tagged
// variant carrying its fixed field-index mapping; the variant is selected
// from the record shape (field count) of the file being parsed.

type schema struct {
	name     string
	fields   int // minimum field count for this revision
	eventID  int
	date     int
	country  int
	isRoot   int
	mentions int
	tone     int
}

var (
	// 58-column export used by the older daily dumps.
	schemaLegacy = schema{
		name: "legacy-58", fields: 58,
		eventID: 0, date: 1, country: 7, isRoot: 25, mentions: 31, tone: 34,
	}
	// 61-column export: GeoType insertion shifted IsRootEvent by one.
	schemaCurrent = schema{
		name: "current-61", fields: 61,
		eventID: 0, date: 1, country: 7, isRoot: 26, mentions: 31, tone: 34,
	}
)

// detectSchema selects the layout variant for a record with n fields.
func detectSchema(n int) (schema, bool) {
	switch {
	case n == schemaLegacy.fields:
		return schemaLegacy, true
	case n >= schemaCurrent.fields:
		return schemaCurrent, true
	default:
		return schema{}, false
	}
}
