package classify

// WatchedSet is the fixed, config-provided set of monitored addresses.
// The list order is significant: subscription correlation ids follow it.
type WatchedSet struct {
	list []string
	set  map[string]struct{}
}

// NewWatchedSet builds a set from the configured address list.
func NewWatchedSet(addresses []string) *WatchedSet {
	s := &WatchedSet{
		list: append([]string(nil), addresses...),
		set:  make(map[string]struct{}, len(addresses)),
	}
	for _, a := range addresses {
		s.set[a] = struct{}{}
	}
	return s
}

// Contains reports whether the address is monitored.
func (s *WatchedSet) Contains(address string) bool {
	_, ok := s.set[address]
	return ok
}

// List returns the addresses in configured order.
func (s *WatchedSet) List() []string {
	return s.list
}
