package hackernews

// paginate.go checks the skip and take arguments of the feed

// Limits and defaults of the take and skip arguments of the feed
const (
	DefaultTake = 30
	MinTake     = 1
	MaxTake     = 50

	// DefaultSkip and MinSkip are 1 (not 0) so an explicit skip of 0 is rejected and, unless the
	// caller asks otherwise, the first link is skipped. This is how the API has always behaved.
	DefaultSkip = 1
	MinSkip     = 1
)

// Page is the validated skip and take of a feed request
type Page struct {
	Skip int
	Take int
}

// BoundTake returns value if it is in the range min to max (inclusive)
func BoundTake(value, min, max int) (int, error) {
	if value < min || value > max {
		return 0, errorf(OutOfRange, "take argument value %d is outside the valid range %d to %d", value, min, max)
	}
	return value, nil
}

// BoundSkip returns value if it is at least min
func BoundSkip(value, min int) (int, error) {
	if value < min {
		return 0, errorf(OutOfRange, "skip argument value %d is below the minimum of %d", value, min)
	}
	return value, nil
}

// PageFromArgs fills in the defaults for absent (nil) arguments then checks the bounds
func PageFromArgs(skip, take *int) (Page, error) {
	p := Page{Skip: DefaultSkip, Take: DefaultTake}
	if skip != nil {
		p.Skip = *skip
	}
	if take != nil {
		p.Take = *take
	}

	var err error
	if p.Take, err = BoundTake(p.Take, MinTake, MaxTake); err != nil {
		return Page{}, err
	}
	if p.Skip, err = BoundSkip(p.Skip, MinSkip); err != nil {
		return Page{}, err
	}
	return p, nil
}
