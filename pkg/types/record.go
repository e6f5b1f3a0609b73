package types

// Registry column names used by the built-in views.
const (
	ColUniqueID           = "unique_id"
	ColOwner              = "owner_standardised"
	ColOwnerClass         = "owner_standardised_class"
	ColPreviousOwner      = "old_entity_standardised"
	ColPreviousOwnerClass = "old_entity_standardised_class"
	ColQualities          = "qualities"
	ColQuality            = "quality"
	ColArea               = "area"
)

// Record is one row of the Sommarioni registry: a flat column -> value map
// that always carries a geometry_id column. Some columns hold a serialised
// list such as "['CASA', 'BOTTEGA']".
type Record map[string]interface{}

// GeometryID returns the raw geometry identifier of the record.
func (r Record) GeometryID() interface{} {
	return r[GeometryIDKey]
}

// String returns the value of col rendered as text, or "" for null/absent.
func (r Record) String(col string) string {
	return toString(r[col])
}

// Float returns the numeric value of col. Numeric strings are accepted.
func (r Record) Float(col string) (float64, bool) {
	return toFloat(r[col])
}

// OwnershipRecord is the projection read by the ownership-category view: the
// raw serialised list stored in the configured column.
type OwnershipRecord struct {
	Values interface{}
}

// Ownership projects the record onto the ownership view.
func (r Record) Ownership(col string) OwnershipRecord {
	return OwnershipRecord{Values: r[col]}
}

// ExpropriationRecord is the projection read by the expropriation view.
// Null columns project to "".
type ExpropriationRecord struct {
	Owner              string
	OwnerClass         string
	PreviousOwner      string
	PreviousOwnerClass string
}

// Expropriation projects the record onto the expropriation view.
func (r Record) Expropriation() ExpropriationRecord {
	return ExpropriationRecord{
		Owner:              r.String(ColOwner),
		OwnerClass:         r.String(ColOwnerClass),
		PreviousOwner:      r.String(ColPreviousOwner),
		PreviousOwnerClass: r.String(ColPreviousOwnerClass),
	}
}

// QualityRecord is the projection read by the average-surface view.
type QualityRecord struct {
	Qualities interface{}
	Area      float64
	HasArea   bool
}

// Quality projects the record onto the average-surface view.
func (r Record) Quality() QualityRecord {
	area, ok := r.Float(ColArea)
	return QualityRecord{
		Qualities: r[ColQualities],
		Area:      area,
		HasArea:   ok,
	}
}

// PorzioneRecord is the projection read by the porzione-count view: the
// free-text quality description.
type PorzioneRecord struct {
	Quality string
}

// Porzione projects the record onto the porzione-count view.
func (r Record) Porzione() PorzioneRecord {
	return PorzioneRecord{Quality: r.String(ColQuality)}
}
