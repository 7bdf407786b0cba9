package ecs

// componentMask is a set of up to 256 component ids. Archetypes are keyed by
// their mask and views match archetypes with a containment check.
type componentMask [4]uint64

func (m *componentMask) set(id componentId) {
	m[id>>6] |= uint64(1) << (id & 63)
}

func (m *componentMask) unset(id componentId) {
	m[id>>6] &^= uint64(1) << (id & 63)
}

func (m componentMask) has(id componentId) bool {
	return m[id>>6]&(uint64(1)<<(id&63)) != 0
}

// contains reports whether every bit of sub is also set in m.
func (m componentMask) contains(sub componentMask) bool {
	return m[0]&sub[0] == sub[0] &&
		m[1]&sub[1] == sub[1] &&
		m[2]&sub[2] == sub[2] &&
		m[3]&sub[3] == sub[3]
}

func (m componentMask) empty() bool {
	return m[0] == 0 && m[1] == 0 && m[2] == 0 && m[3] == 0
}

// ids returns the set component ids in ascending order.
func (m componentMask) ids() []componentId {
	out := make([]componentId, 0, 8)
	for word := 0; word < len(m); word++ {
		bits := m[word]
		for bit := 0; bits != 0 && bit < 64; bit++ {
			if bits&(uint64(1)<<bit) != 0 {
				out = append(out, componentId(word*64+bit))
				bits &^= uint64(1) << bit
			}
		}
	}
	return out
}
