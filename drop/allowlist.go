package drop

import "fmt"

// DefaultAllowList is the list consulted by the AllowListOnly tier.
const DefaultAllowList uint64 = 1

// AllowList holds named membership lists: listID → address → included.
type AllowList map[uint64]map[string]bool

// IsMember reports whether addr is marked present on list listID.
// Unseen addresses and unknown lists are not members.
func (a AllowList) IsMember(listID uint64, addr string) bool {
	return a[listID][addr]
}

// SetMembers applies flags[i] to addresses[i] on list listID. The batch is
// validated up front so that either every entry is written or none is.
func (a AllowList) SetMembers(listID uint64, addresses []string, flags []bool) error {
	if len(addresses) != len(flags) {
		return fmt.Errorf("%w: %d addresses but %d flags", ErrInvalidArgument, len(addresses), len(flags))
	}
	for i, addr := range addresses {
		if addr == "" {
			return fmt.Errorf("%w: empty address at position %d", ErrInvalidArgument, i)
		}
	}
	list, ok := a[listID]
	if !ok {
		list = make(map[string]bool, len(addresses))
		a[listID] = list
	}
	for i, addr := range addresses {
		if flags[i] {
			list[addr] = true
		} else {
			delete(list, addr)
		}
	}
	return nil
}
