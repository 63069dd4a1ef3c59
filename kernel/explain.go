package kernel

// Candidate describes how the selector judged one catalog entry for a parameter set.
type Candidate struct {
	Name     string `json:"name"`
	Position int    `json:"position"`

	Disabled  bool     `json:"disabled"`
	Covered   bool     `json:"covered"`
	Supported bool     `json:"supported"`
	Priority  Priority `json:"priority"`
	Forced    bool     `json:"forced,omitempty"`
	Tuned     bool     `json:"tuned,omitempty"`

	// Rank ist die Position in der finalen Reihenfolge, -1 wenn nicht anwendbar
	Rank  int           `json:"rank"`
	Plan  *DispatchPlan `json:"plan,omitempty"`
	Error string        `json:"error,omitempty"`
}

// Explain runs the full ranking for p and reports every catalog entry, including
// disabled and unsupported ones. Every applicable candidate is built; build errors
// are recorded instead of stopping. The result is ordered by catalog position.
func (s *Selector) Explain(p *Params) ([]Candidate, error) {
	if err := s.check(p); err != nil {
		return nil, err
	}

	out := make([]Candidate, len(s.impls))
	for i, impl := range s.impls {
		c := Candidate{Name: impl.Name(), Position: i, Rank: -1, Covered: true}
		c.Disabled = s.cfg.isDisabled(c.Name)
		if d, ok := declaredKey(impl); ok {
			c.Covered = d.Covers(p.key)
		}
		if !c.Disabled && c.Covered {
			c.Supported = impl.IsSupported(p)
		}
		out[i] = c
	}

	order, rec := s.rank(p)
	for rank, c := range order {
		e := &out[c.index]
		e.Rank = rank
		e.Priority = c.priority
		e.Forced = c.forced
		e.Tuned = c.tuned

		plan, err := s.build(c, p, rec)
		if err != nil {
			e.Error = err.Error()
			continue
		}
		e.Plan = plan
	}
	return out, nil
}
