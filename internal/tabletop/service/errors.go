package service

import (
	"errors"

	"github.com/avvvet/tabletop-services/internal/tabletop/store"
	log "github.com/sirupsen/logrus"
)

// ErrEmpty marks a query that succeeded but matched nothing, so callers can
// tell "no data" apart from a short result.
var ErrEmpty = errors.New("no results")

func invalid(reason string) error {
	return &store.ValidationError{Reason: reason}
}

// logStorageError logs backend failures before they are returned to the caller.
func logStorageError(op string, err error) {
	var serr *store.StorageError
	if errors.As(err, &serr) {
		log.WithFields(log.Fields{"op": op, "storage_op": serr.Op}).Errorf("storage failure: %v", serr.Err)
	}
}
