package domain

// Participant holds the derived points aggregate. TotalPoints must equal the
// sum of Points over all done activities listing the participant, modulo
// manual out-of-band corrections. The engine therefore only ever applies
// deltas to it, never absolute values.
type Participant struct {
	ID          string
	Name        string
	TotalPoints int
}
