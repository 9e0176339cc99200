package models

// Collection is the ordered in-memory set of records. Order is insertion
// order; duplicates of (city, date) are allowed.
type Collection []Record

// Append adds r to the end of the collection.
func (c *Collection) Append(r Record) {
	*c = append(*c, r)
}

// Clone returns an independent copy, used to hand out read-only snapshots.
func (c Collection) Clone() Collection {
	if c == nil {
		return Collection{}
	}
	out := make(Collection, len(c))
	copy(out, c)
	return out
}

// Filter returns the records for city, in insertion order.
func (c Collection) Filter(city string) Collection {
	out := Collection{}
	for _, r := range c {
		if r.City == city {
			out = append(out, r)
		}
	}
	return out
}

// Cities returns the distinct city names in order of first appearance.
func (c Collection) Cities() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range c {
		if _, ok := seen[r.City]; ok {
			continue
		}
		seen[r.City] = struct{}{}
		out = append(out, r.City)
	}
	return out
}
