package db

import (
	"errors"
	"fmt"
)

// StorageType is the FT index storage backend. Known errors live in hashes.
type StorageType string

// StorageHash indexes Redis hashes.
const StorageHash StorageType = "HASH"

// DistanceMetric used by KNN queries against a vector field.
type DistanceMetric string

const (
	DistanceL2     DistanceMetric = "L2"
	DistanceIP     DistanceMetric = "IP"
	DistanceCosine DistanceMetric = "COSINE"
)

// VectorAlgorithm selects the vector index structure.
type VectorAlgorithm string

const (
	VectorHNSW VectorAlgorithm = "HNSW"
	VectorFlat VectorAlgorithm = "FLAT"
)

// IndexFieldType enumerates the schema field kinds the knowledge base indexes.
type IndexFieldType int

const (
	IndexFieldNumeric IndexFieldType = iota
	IndexFieldTag
	IndexFieldVector
)

// VectorSpec holds the attributes of a VECTOR field. Zero values let the
// server pick its defaults.
type VectorSpec struct {
	Algorithm VectorAlgorithm
	Dim       int
	Distance  DistanceMetric

	// HNSW only.
	M              int
	EFConstruction int

	// FLAT only.
	BlockSize int
}

// IndexField is one SCHEMA entry. Vector is set only for IndexFieldVector.
type IndexField struct {
	Name     string
	Type     IndexFieldType
	Sortable bool
	Vector   *VectorSpec
}

// IndexDefinition is everything FT.CREATE needs.
type IndexDefinition struct {
	Name        string
	StorageType StorageType
	Prefixes    []string
	Fields      []IndexField
}

// VectorField returns the first vector field, or nil.
func (idx *IndexDefinition) VectorField() *VectorSpec {
	for i := range idx.Fields {
		if idx.Fields[i].Type == IndexFieldVector {
			return idx.Fields[i].Vector
		}
	}
	return nil
}

// Validate rejects definitions the server would refuse.
func (idx *IndexDefinition) Validate() error {
	if !IsValidIdentifier(idx.Name) {
		return fmt.Errorf("index name %q must match [a-zA-Z0-9_:-]+", idx.Name)
	}
	if len(idx.Fields) == 0 {
		return errors.New("index needs at least one field")
	}

	seen := make(map[string]struct{}, len(idx.Fields))
	for i, f := range idx.Fields {
		if f.Name == "" {
			return fmt.Errorf("field %d has no name", i)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("duplicate field %q", f.Name)
		}
		seen[f.Name] = struct{}{}

		if f.Type == IndexFieldVector && (f.Vector == nil || f.Vector.Dim <= 0) {
			return fmt.Errorf("vector field %q needs a positive dimension", f.Name)
		}
	}
	return nil
}

// IsValidIdentifier reports whether s is a non-empty run of [a-zA-Z0-9_:-].
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_', r == ':', r == '-':
		default:
			return false
		}
	}
	return true
}
