package db

import (
	"strconv"
	"strings"
)

// IndexBuilder assembles an IndexDefinition field by field.
type IndexBuilder struct {
	def IndexDefinition
}

// NewIndex starts a definition over hashes.
func NewIndex(name string) *IndexBuilder {
	return &IndexBuilder{def: IndexDefinition{Name: name, StorageType: StorageHash}}
}

// Prefix restricts the index to keys with the given prefixes.
func (b *IndexBuilder) Prefix(prefixes ...string) *IndexBuilder {
	b.def.Prefixes = append(b.def.Prefixes, prefixes...)
	return b
}

func (b *IndexBuilder) field(f IndexField) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, f)
	return b
}

// Numeric adds a NUMERIC field.
func (b *IndexBuilder) Numeric(name string) *IndexBuilder {
	return b.field(IndexField{Name: name, Type: IndexFieldNumeric})
}

// SortableNumeric adds a NUMERIC SORTABLE field.
func (b *IndexBuilder) SortableNumeric(name string) *IndexBuilder {
	return b.field(IndexField{Name: name, Type: IndexFieldNumeric, Sortable: true})
}

// Tag adds a TAG field.
func (b *IndexBuilder) Tag(name string) *IndexBuilder {
	return b.field(IndexField{Name: name, Type: IndexFieldTag})
}

// VectorHNSW adds an HNSW vector field. m and efConstruction of 0 keep server defaults.
func (b *IndexBuilder) VectorHNSW(name string, dim int, distance DistanceMetric, m, efConstruction int) *IndexBuilder {
	return b.field(IndexField{Name: name, Type: IndexFieldVector, Vector: &VectorSpec{
		Algorithm:      VectorHNSW,
		Dim:            dim,
		Distance:       distance,
		M:              m,
		EFConstruction: efConstruction,
	}})
}

// VectorFlat adds a brute-force vector field.
func (b *IndexBuilder) VectorFlat(name string, dim int, distance DistanceMetric, blockSize int) *IndexBuilder {
	return b.field(IndexField{Name: name, Type: IndexFieldVector, Vector: &VectorSpec{
		Algorithm: VectorFlat,
		Dim:       dim,
		Distance:  distance,
		BlockSize: blockSize,
	}})
}

// Build validates and returns the definition.
func (b *IndexBuilder) Build() (*IndexDefinition, error) {
	if err := b.def.Validate(); err != nil {
		return nil, err
	}
	def := b.def
	return &def, nil
}

// MustBuild is Build for definitions fixed at compile time.
func (b *IndexBuilder) MustBuild() *IndexDefinition {
	def, err := b.Build()
	if err != nil {
		panic(err)
	}
	return def
}

// String renders a short FT.CREATE-like form for logs.
func (idx *IndexDefinition) String() string {
	var sb strings.Builder
	sb.WriteString("FT.CREATE " + idx.Name)
	if idx.StorageType != "" {
		sb.WriteString(" ON " + string(idx.StorageType))
	}
	if len(idx.Prefixes) > 0 {
		sb.WriteString(" PREFIX " + strconv.Itoa(len(idx.Prefixes)) + " " + strings.Join(idx.Prefixes, " "))
	}
	sb.WriteString(" SCHEMA")
	for _, f := range idx.Fields {
		sb.WriteString(" " + f.Name)
		switch f.Type {
		case IndexFieldNumeric:
			sb.WriteString(" NUMERIC")
		case IndexFieldTag:
			sb.WriteString(" TAG")
		case IndexFieldVector:
			if v := f.Vector; v != nil {
				sb.WriteString(" VECTOR " + string(v.Algorithm) + " " + strconv.Itoa(v.Dim) + " " + string(v.Distance))
			}
		}
		if f.Sortable {
			sb.WriteString(" SORTABLE")
		}
	}
	return sb.String()
}
