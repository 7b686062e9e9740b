package generic

// Void is a zero-size value, for maps used as sets.
type Void struct{}

func NewVoid() Void {
	return Void{}
}
