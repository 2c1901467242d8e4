//go:build !linux

package health

import (
	"fmt"
	"runtime"
)

func hostMemory() (total, free uint64, err error) {
	return 0, 0, fmt.Errorf("host memory stats not available on %s", runtime.GOOS)
}
