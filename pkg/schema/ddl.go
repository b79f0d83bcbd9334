package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Dialect selects the SQL flavor for type mapping and identifier quoting.
type Dialect int

const (
	// Postgres is the feature-rich relational dialect.
	Postgres Dialect = iota
	// SQLite is the embedded dialect.
	SQLite
)

func (d Dialect) String() string {
	if d == SQLite {
		return "sqlite"
	}
	return "postgres"
}

// Quote quotes an identifier for the dialect, doubling any embedded quote character.
func (d Dialect) Quote(ident string) string {
	q := `"`
	if d == SQLite {
		q = "`"
	}
	return q + strings.ReplaceAll(ident, q, q+q) + q
}

// QuoteTable quotes a table name. Both dialects accept double quotes here.
func QuoteTable(name string) string {
	return Postgres.Quote(name)
}

// MapType returns the column type used to store values of t.
func MapType(t InferredType, d Dialect) string {
	switch t.Kind {
	case KindString, KindNull:
		return "TEXT"
	case KindInteger:
		if d == SQLite {
			return "INTEGER"
		}
		return "BIGINT"
	case KindFloat:
		if d == SQLite {
			return "REAL"
		}
		return "DOUBLE PRECISION"
	case KindNumber:
		if d == SQLite {
			return "REAL"
		}
		return "NUMERIC"
	case KindBoolean:
		if d == SQLite {
			return "INTEGER"
		}
		return "BOOLEAN"
	case KindArray, KindObject:
		if d == SQLite {
			return "TEXT"
		}
		return "JSONB"
	case KindUnion:
		for _, m := range t.Members {
			if m.Kind != KindNull {
				return MapType(m, d)
			}
		}
		return "TEXT"
	default:
		return "TEXT"
	}
}

// Column is one output column. Source is the field name in the data, Name the
// (possibly renamed) column name.
type Column struct {
	Source string
	Name   string
	Type   string
}

// Builder produces DDL for one dialect and one set of column renames.
type Builder struct {
	dialect  Dialect
	mappings map[string]string
}

// NewBuilder creates a builder. mappings renames fields to columns and may be nil.
func NewBuilder(d Dialect, mappings map[string]string) *Builder {
	return &Builder{dialect: d, mappings: mappings}
}

// Dialect returns the builder's dialect.
func (b *Builder) Dialect() Dialect { return b.dialect }

// ColumnName returns the column a field is stored in.
func (b *Builder) ColumnName(field string) string {
	if renamed, ok := b.mappings[field]; ok && renamed != "" {
		return renamed
	}
	return field
}

// Columns returns the columns for fields ordered by their original names.
func (b *Builder) Columns(fields map[string]InferredType) []Column {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	cols := make([]Column, len(names))
	for i, name := range names {
		cols[i] = Column{
			Source: name,
			Name:   b.ColumnName(name),
			Type:   MapType(fields[name], b.dialect),
		}
	}
	return cols
}

// QuotedNames returns the quoted column names joined with ", ".
func (b *Builder) QuotedNames(cols []Column) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = b.dialect.Quote(c.Name)
	}
	return strings.Join(parts, ", ")
}

// BuildCreateTable returns an idempotent CREATE TABLE statement for fields.
// The output depends only on its inputs.
func (b *Builder) BuildCreateTable(table string, fields map[string]InferredType) string {
	cols := b.Columns(fields)
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = fmt.Sprintf("%s %s", b.dialect.Quote(c.Name), c.Type)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", QuoteTable(table), strings.Join(defs, ", "))
}
