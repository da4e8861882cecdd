package imcol

import (
	"fmt"
	"strings"
)

// Layout names how an image's channels are stored on disk.
type Layout string

const (
	// LayoutSingle is one single-plane file per channel (FileImage).
	LayoutSingle Layout = "single"

	// LayoutStack is one multi-plane file per channel (StackFileImage).
	LayoutStack Layout = "stack"

	// LayoutMulti is one file per plane (MultiFileImage).
	LayoutMulti Layout = "multi"
)

// ParseLayout parses a layout name. The empty string is LayoutSingle.
func ParseLayout(s string) (Layout, error) {
	switch l := Layout(strings.ToLower(strings.TrimSpace(s))); l {
	case "":
		return LayoutSingle, nil
	case LayoutSingle, LayoutStack, LayoutMulti:
		return l, nil
	}
	return "", fmt.Errorf("invalid layout %q: want single, stack or multi", s)
}

// Open creates an image of the given layout. Single and stack layouts take
// exactly one path per channel.
func Open(layout Layout, files map[string][]string, opts ...Option) (PlaneImage, error) {
	if layout == LayoutMulti {
		return NewMultiFileImage(files, opts...), nil
	}

	single := make(map[string]string, len(files))
	for ch, paths := range files {
		if len(paths) != 1 {
			return nil, fmt.Errorf("%w: %s layout needs one file for channel %q, got %d", ErrInvalidState, layout, ch, len(paths))
		}
		single[ch] = paths[0]
	}

	switch layout {
	case LayoutSingle, "":
		return NewFileImage(single, opts...), nil
	case LayoutStack:
		return NewStackFileImage(single, opts...), nil
	}
	return nil, fmt.Errorf("invalid layout %q", layout)
}
