package gwmail

import (
	"context"
	"net/url"

	"github.com/pkg/errors"
	"google.golang.org/api/googleapi"
)

// IsAPIError reports whether err is a Gmail API or transport failure. Those are
// reported and skipped; anything else is fatal to a run, including cancellation.
func IsAPIError(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
