package redis

import (
	"context"
	"errors"
	"strconv"

	"github.com/kailas-cloud/errmatch/internal/db"
)

// CreateIndex creates an FT index from the given definition.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	args, err := buildCreateArgs(def)
	if err != nil {
		return err
	}

	cmd := s.b().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if serverErrContains(err, msgIndexConflict) {
			return db.ErrIndexExists
		}
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	return nil
}

// DropIndex removes an FT index by name. deleteDocs also deletes the indexed hashes (DD).
func (s *Store) DropIndex(ctx context.Context, name string, deleteDocs bool) error {
	args := []string{name}
	if deleteDocs {
		args = append(args, "DD")
	}
	cmd := s.b().Arbitrary("FT.DROPINDEX").Args(args...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isIndexMissing(err) {
			return db.ErrIndexNotFound
		}
		return &db.Error{Op: db.OpDropIndex, Err: err}
	}
	return nil
}

// IndexExists probes index existence via FT.INFO; "unknown index name" means absent.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isIndexMissing(err) {
			return false, nil
		}
		return false, &db.Error{Op: db.OpIndexInfo, Err: err}
	}
	return true, nil
}

// AliasUpdate points alias at index. Readers querying the alias switch atomically.
func (s *Store) AliasUpdate(ctx context.Context, alias, index string) error {
	cmd := s.b().Arbitrary("FT.ALIASUPDATE").Args(alias, index).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isIndexMissing(err) {
			return db.ErrIndexNotFound
		}
		return &db.Error{Op: db.OpAliasUpdate, Err: err}
	}
	return nil
}

func buildCreateArgs(idx *db.IndexDefinition) ([]string, error) {
	if idx.Name == "" {
		return nil, errors.New("index name is required")
	}
	if len(idx.Fields) == 0 {
		return nil, errors.New("at least one field is required")
	}

	args := []string{idx.Name}

	storage := idx.StorageType
	if storage == "" {
		storage = db.StorageHash
	}
	args = append(args, "ON", string(storage))

	if len(idx.Prefixes) > 0 {
		args = append(args, "PREFIX", strconv.Itoa(len(idx.Prefixes)))
		args = append(args, idx.Prefixes...)
	}

	args = append(args, "SCHEMA")

	for i := range idx.Fields {
		fieldArgs, err := buildFieldArgs(&idx.Fields[i])
		if err != nil {
			return nil, err
		}
		args = append(args, fieldArgs...)
	}

	return args, nil
}

func buildFieldArgs(f *db.IndexField) ([]string, error) {
	if f.Name == "" {
		return nil, errors.New("field name is required")
	}

	args := []string{f.Name}
	switch f.Type {
	case db.IndexFieldNumeric:
		args = append(args, "NUMERIC")
	case db.IndexFieldTag:
		args = append(args, "TAG")
	case db.IndexFieldVector:
		if f.Vector == nil {
			return nil, errors.New("vector field " + f.Name + " has no vector spec")
		}
		vectorArgs, err := buildVectorArgs(f.Vector)
		if err != nil {
			return nil, err
		}
		args = append(args, vectorArgs...)
	default:
		return nil, errors.New("unknown field type for " + f.Name)
	}

	if f.Sortable {
		args = append(args, "SORTABLE")
	}
	return args, nil
}

// buildVectorArgs renders "VECTOR <algo> <nargs> <attrs...>". Vectors are FLOAT32 blobs.
func buildVectorArgs(v *db.VectorSpec) ([]string, error) {
	if v.Dim <= 0 {
		return nil, errors.New("vector DIM must be positive")
	}

	algo := v.Algorithm
	if algo == "" {
		algo = db.VectorFlat
	}
	distance := v.Distance
	if distance == "" {
		distance = db.DistanceCosine
	}

	attrs := []string{
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(v.Dim),
		"DISTANCE_METRIC", string(distance),
	}
	optional := func(name string, n int) {
		if n > 0 {
			attrs = append(attrs, name, strconv.Itoa(n))
		}
	}
	switch algo {
	case db.VectorHNSW:
		optional("M", v.M)
		optional("EF_CONSTRUCTION", v.EFConstruction)
	case db.VectorFlat:
		optional("BLOCK_SIZE", v.BlockSize)
	}

	return append([]string{"VECTOR", string(algo), strconv.Itoa(len(attrs))}, attrs...), nil
}
