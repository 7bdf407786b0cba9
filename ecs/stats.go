package ecs

// StorageStats summarizes the contents of a Storage.
type StorageStats struct {
	ArchetypeCount     int
	TotalEntityCount   int
	SingletonCount     int
	ArchetypeBreakdown []ArchetypeStats
	SingletonTypes     []string
}

// ArchetypeStats describes one archetype.
type ArchetypeStats struct {
	ID             uint32
	ComponentTypes []string
	EntityCount    int
	Capacity       int
}

// CollectStats walks every archetype in creation order. Archetypes that
// currently hold no entities are left out of the breakdown and the count.
func (s *Storage) CollectStats() StorageStats {
	stats := StorageStats{
		SingletonCount: len(s.singletonOrder),
		SingletonTypes: make([]string, 0, len(s.singletonOrder)),
	}

	for _, a := range s.archetypes {
		if a.live == 0 {
			continue
		}
		stats.ArchetypeCount++
		stats.TotalEntityCount += a.live
		stats.ArchetypeBreakdown = append(stats.ArchetypeBreakdown, ArchetypeStats{
			ID:             a.id,
			ComponentTypes: append([]string(nil), a.names...),
			EntityCount:    a.live,
			Capacity:       len(a.rows),
		})
	}

	for _, typ := range s.singletonOrder {
		stats.SingletonTypes = append(stats.SingletonTypes, typ.String())
	}

	return stats
}
