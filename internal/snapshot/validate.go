package snapshot

import "fmt"

// Validate checks the version and that every id reference resolves.
func (s *Snapshot) Validate() error {
	if s.Version > Version {
		return fmt.Errorf("%w: %d", ErrVersion, s.Version)
	}
	ids := make(map[string]bool, len(s.Characters))
	for _, c := range s.Characters {
		if ids[c.ID] {
			return fmt.Errorf("%w: character %q", ErrDuplicateID, c.ID)
		}
		ids[c.ID] = true
	}
	for _, c := range s.Characters {
		if c.Attach != nil && !ids[c.Attach.Parent] {
			return fmt.Errorf("%w: %q attaches to %q", ErrUnknownID, c.ID, c.Attach.Parent)
		}
	}
	if _, err := s.AttachOrder(); err != nil {
		return err
	}
	if s.Layout != nil {
		if _, err := s.Layout.index(); err != nil {
			return err
		}
	}
	return nil
}

// Character returns the character with id.
func (s *Snapshot) Character(id string) (*Character, bool) {
	for i := range s.Characters {
		if s.Characters[i].ID == id {
			return &s.Characters[i], true
		}
	}
	return nil, false
}

// AttachOrder returns character indices ordered so that every attach parent
// comes before its children. Unattached characters keep their order.
func (s *Snapshot) AttachOrder() ([]int, error) {
	byID := make(map[string]int, len(s.Characters))
	for i, c := range s.Characters {
		byID[c.ID] = i
	}
	const (
		unvisited = iota
		visiting
		done
	)
	state := make([]int, len(s.Characters))
	order := make([]int, 0, len(s.Characters))
	var visit func(i int) error
	visit = func(i int) error {
		switch state[i] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("%w: through %q", ErrAttachCycle, s.Characters[i].ID)
		}
		state[i] = visiting
		if a := s.Characters[i].Attach; a != nil {
			p, ok := byID[a.Parent]
			if !ok {
				return fmt.Errorf("%w: %q attaches to %q", ErrUnknownID, s.Characters[i].ID, a.Parent)
			}
			if err := visit(p); err != nil {
				return err
			}
		}
		state[i] = done
		order = append(order, i)
		return nil
	}
	for i := range s.Characters {
		if err := visit(i); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func (l *Layout) index() (map[uint64]*Instance, error) {
	byID := make(map[uint64]*Instance, len(l.Instances))
	for i := range l.Instances {
		inst := &l.Instances[i]
		if _, ok := byID[inst.ID]; ok {
			return nil, fmt.Errorf("%w: instance %d", ErrDuplicateID, inst.ID)
		}
		byID[inst.ID] = inst
		if l := inst.Light; l != nil {
			switch l.Type {
			case "", LightPoint, LightSpot, LightDirectional:
			default:
				return nil, fmt.Errorf("%w: instance %d has %q", ErrLightType, inst.ID, l.Type)
			}
		}
	}
	for _, id := range l.Roots {
		if _, ok := byID[id]; !ok {
			return nil, fmt.Errorf("%w: layout root %d", ErrUnknownID, id)
		}
	}
	for _, inst := range l.Instances {
		for _, c := range inst.Children {
			if _, ok := byID[c]; !ok {
				return nil, fmt.Errorf("%w: instance %d child %d", ErrUnknownID, inst.ID, c)
			}
		}
	}
	return byID, nil
}

// Lookup returns the instance with id.
func (l *Layout) Lookup(id uint64) (*Instance, bool) {
	for i := range l.Instances {
		if l.Instances[i].ID == id {
			return &l.Instances[i], true
		}
	}
	return nil, false
}
