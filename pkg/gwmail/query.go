package gwmail

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

const (
	// DateLayout is the input format for listing dates.
	DateLayout = "2006-01-02"

	queryDateLayout = "2006/01/02"
)

// DateRange is a calendar window: Start inclusive, End exclusive, per Gmail's
// after:/before: search semantics.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseDateRange parses two YYYY-MM-DD dates. The end must come after the start.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return DateRange{}, errors.Wrapf(err, "parsing start date %q", start)
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return DateRange{}, errors.Wrapf(err, "parsing end date %q", end)
	}
	if !e.After(s) {
		return DateRange{}, errors.Errorf("end date %s must be after start date %s", end, start)
	}
	return DateRange{Start: s, End: e}, nil
}

// Query renders the range as a Gmail search query.
func (r DateRange) Query() string {
	return fmt.Sprintf("after:%s before:%s", r.Start.Format(queryDateLayout), r.End.Format(queryDateLayout))
}
