package servicenode

// IsNodeRemovable reports whether a node may be purged from the registry:
// unstaked (its stake withdrawn to zero) or past its requested unlock
// height. The zero-stake case applies at any height, with no grace period
// for a fresh registration: RegisterHooks sets Stake from the registration
// output's value (a later stake output overwrites it), so a node registered
// with a zero-value output reads as unstaked-and-removable from the start.
func IsNodeRemovable(n *Node, currentHeight uint64) bool {
	if n.Stake == 0 {
		return true
	}
	if n.RequestedUnlock && currentHeight >= n.UnlockHeight {
		return true
	}
	return false
}
