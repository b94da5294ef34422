package errmatch

import "github.com/kailas-cloud/errmatch/internal/catalog"

// DefaultCatalog returns the built-in known errors.
func DefaultCatalog() []KnownError {
	return fromEntries(catalog.Default())
}

// LoadCatalog reads known errors from a YAML or JSON file.
func LoadCatalog(path string) ([]KnownError, error) {
	entries, err := catalog.Load(path)
	if err != nil {
		return nil, err
	}
	return fromEntries(entries), nil
}
