package port

import (
	"fmt"
	"net"
	"strconv"
)

// Allocate finds the lowest port in [from, to] that is not in used and,
// when available is non-nil, that available reports as free.
func Allocate(from, to int, used []int, available func(int) bool) (int, error) {
	if from <= 0 || to < from {
		return 0, fmt.Errorf("invalid port range %d-%d", from, to)
	}

	usedPorts := make(map[int]bool, len(used))
	for _, p := range used {
		usedPorts[p] = true
	}

	for p := from; p <= to; p++ {
		if usedPorts[p] {
			continue
		}
		if available != nil && !available(p) {
			continue
		}
		return p, nil
	}

	return 0, fmt.Errorf("no available ports in range %d-%d", from, to)
}

// Free reports whether port can be bound on the loopback interface.
func Free(port int) bool {
	l, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		return false
	}
	_ = l.Close()
	return true
}
