package history

type Stats struct {
	Sessions      int `json:"sessions"`
	TotalFindings int `json:"total_findings"`
	UniqueHosts   int `json:"unique_hosts"`
}

func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	hosts := map[string]struct{}{}
	total := 0
	for i := range s.sessions {
		total += len(s.sessions[i].Results)
		for j := range s.sessions[i].Results {
			hosts[s.sessions[i].Results[j].IP] = struct{}{}
		}
	}
	return Stats{
		Sessions:      len(s.sessions),
		TotalFindings: total,
		UniqueHosts:   len(hosts),
	}
}
