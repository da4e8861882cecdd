package imcol

import (
	"fmt"
	"strconv"
	"strings"
)

type selectorKind int

const (
	selectIndex selectorKind = iota
	selectMax
	selectCentral
)

// PlaneSelector chooses a plane of a channel. The zero value selects plane 0.
type PlaneSelector struct {
	kind  selectorKind
	index int
}

var (
	// MaxPlane selects the element-wise maximum projection across planes.
	MaxPlane = PlaneSelector{kind: selectMax}

	// CentralPlane selects the middle plane, index n/2 of n planes.
	CentralPlane = PlaneSelector{kind: selectCentral}
)

// PlaneAt selects the plane at index i (0-based).
func PlaneAt(i int) PlaneSelector {
	return PlaneSelector{kind: selectIndex, index: i}
}

// ParsePlane parses "max", "central" or a non-negative integer index.
func ParsePlane(s string) (PlaneSelector, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "max":
		return MaxPlane, nil
	case "central", "":
		return CentralPlane, nil
	}
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || i < 0 {
		return PlaneSelector{}, fmt.Errorf("invalid plane %q: want max, central or an index >= 0", s)
	}
	return PlaneAt(i), nil
}

func (s PlaneSelector) String() string {
	switch s.kind {
	case selectMax:
		return "max"
	case selectCentral:
		return "central"
	}
	return strconv.Itoa(s.index)
}

// resolve maps an index or central selector against a stack of n planes.
func (s PlaneSelector) resolve(n int) (int, error) {
	i := s.index
	if s.kind == selectCentral {
		i = n / 2
	}
	if i < 0 || i >= n {
		return 0, fmt.Errorf("%w: plane %d of %d", ErrPlaneOutOfRange, i, n)
	}
	return i, nil
}
