package source

// Acker hides the specifics of acknowledging the consumption of a state
// change.
type Acker interface {
	Ack(id string) error
}
