package profile

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// defaultDepth is the nesting limit when a spec does not give one.
const defaultDepth = 999

// Filter selects which spans are recorded and reported.
//
// A span is started only while the current nesting depth is below Depth.
// When Allowed is non-empty, only root spans with one of those labels open a
// tree; nested spans are not label-checked. A finished tree is reported when
// its root took at least LongerThan.
type Filter struct {
	Depth      int
	Allowed    []string
	LongerThan time.Duration
}

// Disabled returns a filter that records nothing.
func Disabled() Filter {
	return Filter{}
}

// ParseFilter parses a spec of the form
//
//	<labels>[@<depth>][><millis>]
//
// where labels is "*" for any label or a "|"-separated list. Examples:
// "*", "handshake|main_loop", "*@3>10". An empty spec yields Disabled.
func ParseFilter(spec string) (Filter, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Disabled(), nil
	}

	f := Filter{Depth: defaultDepth}

	if idx := strings.LastIndex(spec, ">"); idx >= 0 {
		ms, err := strconv.ParseUint(spec[idx+1:], 10, 32)
		if err != nil {
			return Filter{}, fmt.Errorf("invalid profile threshold %q: %w", spec[idx+1:], err)
		}
		f.LongerThan = time.Duration(ms) * time.Millisecond
		spec = spec[:idx]
	}

	if idx := strings.LastIndex(spec, "@"); idx >= 0 {
		depth, err := strconv.ParseUint(spec[idx+1:], 10, 16)
		if err != nil {
			return Filter{}, fmt.Errorf("invalid profile depth %q: %w", spec[idx+1:], err)
		}
		f.Depth = int(depth)
		spec = spec[:idx]
	}

	if spec != "*" {
		for _, label := range strings.Split(spec, "|") {
			if label = strings.TrimSpace(label); label != "" {
				f.Allowed = append(f.Allowed, label)
			}
		}
	}

	return f, nil
}

// Enabled reports whether any span can ever be recorded.
func (f Filter) Enabled() bool {
	return f.Depth > 0
}

func (f Filter) allowsRoot(label string) bool {
	return len(f.Allowed) == 0 || slices.Contains(f.Allowed, label)
}
