package idxtable

import (
	"fmt"
	"math"
	"strings"
)

// Type defines an index: its name (which doubles as the backend table name),
// the number of columns and which column rows are ordered by.
type Type struct {
	name        string
	columns     int
	orderColumn int
}

// Define validates and returns a new index type.
func Define(name string, columns, orderColumn int) (*Type, error) {
	if name == "" {
		return nil, configErrf("index type name is empty")
	}
	if columns < 2 || columns > math.MaxUint16 {
		return nil, configErrf("%s: column count %d outside of [2, %d]", name, columns, math.MaxUint16)
	}
	if orderColumn < 0 || orderColumn >= columns {
		return nil, configErrf("%s: order column %d is not below column count %d", name, orderColumn, columns)
	}
	return &Type{
		name:        name,
		columns:     columns,
		orderColumn: orderColumn,
	}, nil
}

// MustDefine is like Define, but panics on invalid configuration. Use it for
// package-level type declarations.
func MustDefine(name string, columns, orderColumn int) *Type {
	return must(Define(name, columns, orderColumn))
}

func (t *Type) Name() string     { return t.name }
func (t *Type) Columns() int     { return t.columns }
func (t *Type) OrderColumn() int { return t.orderColumn }

func (t *Type) String() string {
	return fmt.Sprintf("%s(%d cols, order by %d)", t.name, t.columns, t.orderColumn)
}

type Schema struct {
	types            []*Type
	typesByLowerName map[string]*Type
}

func NewSchema() *Schema {
	return &Schema{
		typesByLowerName: make(map[string]*Type),
	}
}

// AddType defines an index type and registers it within the schema.
func AddType(scm *Schema, name string, columns, orderColumn int) *Type {
	t := MustDefine(name, columns, orderColumn)
	scm.Add(t)
	return t
}

func (scm *Schema) Add(t *Type) {
	lower := strings.ToLower(t.name)
	if scm.typesByLowerName[lower] != nil {
		panic(fmt.Errorf("duplicate index type %s", t.name))
	}
	scm.types = append(scm.types, t)
	scm.typesByLowerName[lower] = t
}

func (scm *Schema) Types() []*Type {
	return append([]*Type(nil), scm.types...)
}

func (scm *Schema) TypeNamed(name string) *Type {
	return scm.typesByLowerName[strings.ToLower(name)]
}
