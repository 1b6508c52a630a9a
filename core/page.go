package core

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// Page limits a listing.
type Page struct {
	Limit  int
	Offset int
}

// Normalize applies the default and maximum limit and clamps negative offsets.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
