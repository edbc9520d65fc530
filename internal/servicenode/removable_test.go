package servicenode

import "testing"

func TestIsNodeRemovable_ZeroStakeAlwaysRemovable(t *testing.T) {
	n := &Node{Stake: 0}
	if !IsNodeRemovable(n, 0) {
		t.Fatal("a node with no recorded stake must read as removable, including at height 0")
	}
}

func TestIsNodeRemovable_StakedNotUnlocking(t *testing.T) {
	n := &Node{Stake: 1000}
	if IsNodeRemovable(n, 1_000_000) {
		t.Fatal("a staked node that never requested unlock must never be removable")
	}
}

func TestIsNodeRemovable_UnlockingBeforeHeight(t *testing.T) {
	n := &Node{Stake: 1000, RequestedUnlock: true, UnlockHeight: 100}
	if IsNodeRemovable(n, 50) {
		t.Fatal("node must not be removable before its unlock height")
	}
	if !IsNodeRemovable(n, 100) {
		t.Fatal("node must be removable at its unlock height")
	}
}
