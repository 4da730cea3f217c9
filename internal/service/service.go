package service

import (
	"github.com/stripelite/backend/internal/domain"
	"github.com/stripelite/backend/internal/repository"
)

// storeErr maps store failures onto the error taxonomy: a missing schema
// becomes a setup hint, everything else an opaque internal error.
func storeErr(msg string, err error) error {
	if repository.SchemaMissing(err) {
		return domain.ErrStoreUnavailable(err)
	}
	return domain.ErrInternal(msg, err)
}
