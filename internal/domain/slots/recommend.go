package slots

// RecommendedSlot wraps a Slot with a presentation hint. The hint is layered
// on top of the generator output and never changes which slots exist or the
// order they arrive in.
type RecommendedSlot struct {
	Slot
	Recommended bool `json:"recommended"`
}

// Recommend tags the first slot of each day. Front-ends surface the tag as a
// "best" badge; callers that ignore it lose nothing.
func Recommend(in []Slot) []RecommendedSlot {
	out := make([]RecommendedSlot, len(in))
	for i, s := range in {
		out[i] = RecommendedSlot{Slot: s}
		if i == 0 || in[i-1].Date != s.Date {
			out[i].Recommended = true
		}
	}
	return out
}
