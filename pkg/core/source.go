package core

import (
	"strconv"
)

// DeclaredType classifies an upload after it has been read.
type DeclaredType string

// Declared type constants.
const (
	TypeCSV              DeclaredType = "csv"
	TypeXLSX             DeclaredType = "xlsx"
	TypeParquet          DeclaredType = "parquet"
	TypeParquetPartition DeclaredType = "parquet-partition"
	TypeUnsupported      DeclaredType = "unsupported"
	TypeError            DeclaredType = "error"
)

// Validation is the path-validation state of a source record.
type Validation string

// Validation constants.
const (
	ValidationPending Validation = "Pending"
	ValidationValid   Validation = "Valid"
	ValidationInvalid Validation = "Invalid"
)

// PathKind says what a validated path points at.
type PathKind string

// PathKind constants.
const (
	PathKindUnknown   PathKind = "Unknown"
	PathKindFile      PathKind = "File"
	PathKindDirectory PathKind = "Directory"
)

// Location says where a source's data lives.
type Location string

// Location constants.
const (
	LocationInMemory Location = "InMemory"
	LocationOnDisk   Location = "OnDisk"
)

// Field names a SourceRecord column. Edit payloads and the cache file use these keys.
type Field string

// Field constants.
const (
	FieldName             Field = "name"
	FieldSheet            Field = "sheet"
	FieldContentHash      Field = "content_hash"
	FieldSizeBytes        Field = "size_bytes"
	FieldDeclaredType     Field = "declared_type"
	FieldEncoding         Field = "encoding"
	FieldValidation       Field = "validation"
	FieldPath             Field = "path"
	FieldPathKind         Field = "path_kind"
	FieldAlias            Field = "alias"
	FieldSourceExpression Field = "source_expression"
	FieldLocation         Field = "location"
)

// Fields lists every record field in display order.
var Fields = []Field{
	FieldName,
	FieldSheet,
	FieldContentHash,
	FieldSizeBytes,
	FieldDeclaredType,
	FieldEncoding,
	FieldValidation,
	FieldPath,
	FieldPathKind,
	FieldAlias,
	FieldSourceExpression,
	FieldLocation,
}

// SourceRecord is the unit tracked from upload to committed source.
type SourceRecord struct {
	// Name is the original filename, suffixed with "--<sheet>" for workbook sheets.
	Name string
	// Sheet is the worksheet a record was read from (workbooks only).
	Sheet string
	// ContentHash is the hex digest of the raw upload and the deduplication key.
	ContentHash      string
	SizeBytes        int64
	DeclaredType     DeclaredType
	Encoding         string
	Validation       Validation
	Path             string
	PathKind         PathKind
	Alias            string
	SourceExpression string
	Location         Location
}

// Get returns the text form of a field. The second value is false for unknown fields.
func (r *SourceRecord) Get(f Field) (string, bool) {
	switch f {
	case FieldName:
		return r.Name, true
	case FieldSheet:
		return r.Sheet, true
	case FieldContentHash:
		return r.ContentHash, true
	case FieldSizeBytes:
		return strconv.FormatInt(r.SizeBytes, 10), true
	case FieldDeclaredType:
		return string(r.DeclaredType), true
	case FieldEncoding:
		return r.Encoding, true
	case FieldValidation:
		return string(r.Validation), true
	case FieldPath:
		return r.Path, true
	case FieldPathKind:
		return string(r.PathKind), true
	case FieldAlias:
		return r.Alias, true
	case FieldSourceExpression:
		return r.SourceExpression, true
	case FieldLocation:
		return string(r.Location), true
	default:
		return "", false
	}
}

// Set assigns a field from its text form. It reports false for unknown fields
// and for a size that is not an integer.
func (r *SourceRecord) Set(f Field, value string) bool {
	switch f {
	case FieldName:
		r.Name = value
	case FieldSheet:
		r.Sheet = value
	case FieldContentHash:
		r.ContentHash = value
	case FieldSizeBytes:
		if value == "" {
			r.SizeBytes = 0
			return true
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return false
		}
		r.SizeBytes = n
	case FieldDeclaredType:
		r.DeclaredType = DeclaredType(value)
	case FieldEncoding:
		r.Encoding = value
	case FieldValidation:
		r.Validation = Validation(value)
	case FieldPath:
		r.Path = value
	case FieldPathKind:
		r.PathKind = PathKind(value)
	case FieldAlias:
		r.Alias = value
	case FieldSourceExpression:
		r.SourceExpression = value
	case FieldLocation:
		r.Location = Location(value)
	default:
		return false
	}
	return true
}

// ToFields renders every field as text.
func (r *SourceRecord) ToFields() map[string]string {
	out := make(map[string]string, len(Fields))
	for _, f := range Fields {
		v, _ := r.Get(f)
		out[string(f)] = v
	}
	return out
}

// RecordFromFields builds a record from its text form. Unknown keys are ignored.
func RecordFromFields(m map[string]string) SourceRecord {
	var r SourceRecord
	for k, v := range m {
		r.Set(Field(k), v)
	}
	return r
}

// Committable reports whether a record may enter the committed registry.
func (r *SourceRecord) Committable() bool {
	return r.Validation == ValidationValid && r.Alias != ""
}

// SavedQueries maps query names to SQL text, remembering insertion order.
type SavedQueries struct {
	names []string
	sql   map[string]string
}

// NewSavedQueries creates an empty mapping.
func NewSavedQueries() *SavedQueries {
	return &SavedQueries{sql: make(map[string]string)}
}

// Get returns the SQL saved under name.
func (s *SavedQueries) Get(name string) (string, bool) {
	q, ok := s.sql[name]
	return q, ok
}

// Has reports whether name is taken.
func (s *SavedQueries) Has(name string) bool {
	_, ok := s.sql[name]
	return ok
}

// Put stores sql under name, replacing any previous text.
func (s *SavedQueries) Put(name, sql string) {
	if _, ok := s.sql[name]; !ok {
		s.names = append(s.names, name)
	}
	s.sql[name] = sql
}

// Delete removes name. It reports whether anything was removed.
func (s *SavedQueries) Delete(name string) bool {
	if _, ok := s.sql[name]; !ok {
		return false
	}
	delete(s.sql, name)
	for i, n := range s.names {
		if n == name {
			s.names = append(s.names[:i], s.names[i+1:]...)
			break
		}
	}
	return true
}

// Names returns query names in insertion order.
func (s *SavedQueries) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Map returns a copy of the mapping.
func (s *SavedQueries) Map() map[string]string {
	out := make(map[string]string, len(s.sql))
	for k, v := range s.sql {
		out[k] = v
	}
	return out
}

// Len returns the number of saved queries.
func (s *SavedQueries) Len() int {
	return len(s.names)
}
