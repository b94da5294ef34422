package main

import (
	"errors"

	"github.com/kailas-cloud/errmatch/internal/domain"
	chitransport "github.com/kailas-cloud/errmatch/internal/transport/chi"
)

// envelope maps caller mistakes and a missing database onto the JSON error
// envelope. Anything else is a failure of the command itself.
func envelope(err error, emptyMsg string) (chitransport.ErrorResponse, bool) {
	switch {
	case errors.Is(err, domain.ErrEmptyInput):
		return chitransport.ErrorResponse{Error: emptyMsg}, true
	case errors.Is(err, domain.ErrDatabaseNotConfigured):
		return chitransport.ErrorResponse{Error: chitransport.MsgDatabaseMissing}, true
	case errors.Is(err, domain.ErrNoLabels),
		errors.Is(err, domain.ErrInvalidLabels),
		errors.Is(err, domain.ErrInvalidCatalog):
		return chitransport.ErrorResponse{Error: err.Error()}, true
	}
	return chitransport.ErrorResponse{}, false
}
