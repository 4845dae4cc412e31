package manifest

import "git.home.luguber.info/inful/confexport/internal/foundation/errors"

// Sentinel errors; compare with errors.Is, the returned errors carry a cause
// and context.
var (
	ErrOpenFailed   = errors.FileSystemError("could not open manifest database").Build()
	ErrSchemaFailed = errors.FileSystemError("failed to initialize manifest schema").Build()
	ErrWriteFailed  = errors.FileSystemError("failed to record run in manifest").Build()
	ErrQueryFailed  = errors.FileSystemError("failed to query manifest").Build()
	ErrRunNotFound  = errors.NotFoundError("run not found in manifest").Build()
)

func wrap(sentinel *errors.ClassifiedError, cause error) error {
	return errors.WrapError(cause, sentinel.Category(), sentinel.Message()).
		WithSeverity(sentinel.Severity()).
		Build()
}
