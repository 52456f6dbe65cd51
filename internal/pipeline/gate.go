package pipeline

// generationGate enforces the per-field ordering rule: the transport
// does not guarantee generation order, so any result whose generation
// is lower than the highest already observed for its field is stale and
// must be discarded, never merged.
type generationGate struct {
	latest map[string]uint64
}

func newGenerationGate() *generationGate {
	return &generationGate{latest: make(map[string]uint64)}
}

// Admit reports whether a result with the given generation should be
// consumed, and records it as the highest observed when so.
func (g *generationGate) Admit(fieldID string, gen uint64) bool {
	if gen < g.latest[fieldID] {
		return false
	}
	g.latest[fieldID] = gen
	return true
}
