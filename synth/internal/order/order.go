// Package order computes the total member order shared by encode and decode.
//
// Every member has an effective key: its order hint when one is given,
// otherwise its declaration index. Members are stably sorted by
// (key, declaration index), so hints splice members into the declaration
// sequence and ties fall back to declaration order. Any int is a valid hint,
// including math.MinInt and math.MaxInt as first/last sentinels.
package order

import (
	"cmp"
	"slices"
)

// Member is the ordering input for one declared member.
type Member struct {
	Decl   int
	Hint   int
	Hinted bool
}

// Key returns the member's effective sort key.
func (m Member) Key() int {
	if m.Hinted {
		return m.Hint
	}
	return m.Decl
}

// Sort returns indices into members in total order.
func Sort(members []Member) []int {
	idx := make([]int, len(members))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		ma, mb := members[a], members[b]
		if c := cmp.Compare(ma.Key(), mb.Key()); c != 0 {
			return c
		}
		return cmp.Compare(ma.Decl, mb.Decl)
	})
	return idx
}

// Positions inverts an order: positions[order[i]] = i.
func Positions(order []int) []int {
	pos := make([]int, len(order))
	for i, m := range order {
		pos[m] = i
	}
	return pos
}

// Precedes reports whether member a is strictly earlier than b.
func Precedes(pos []int, a, b int) bool {
	return pos[a] < pos[b]
}
