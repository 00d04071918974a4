package core

var (
	defaultActive  = true
	defaultEnabled = true
)

// Origin information of an operation.
type Origin struct {
	UserID uint64
}

func authorize(origin Origin, ownerID uint64) error {
	if origin.UserID != ownerID {
		return wrapError(ErrUnauthorized, "origin (%d)", origin.UserID)
	}

	return nil
}
