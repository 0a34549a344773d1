package domain

import "errors"

var (
	ErrConfig      = errors.New("configuration error")
	ErrAuth        = errors.New("signature verification failed")
	ErrParse       = errors.New("malformed order payload")
	ErrDataSource  = errors.New("data source error")
	ErrExport      = errors.New("artifact export failed")
	ErrStorage     = errors.New("artifact storage failed")
	ErrCredentials = errors.New("storage credentials missing or invalid")
	// ErrCodeConflict is returned when an order already has an artifact
	// derived from a different classification code.
	ErrCodeConflict = errors.New("order already reported with a different code")
)
