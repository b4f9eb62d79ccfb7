//go:build linux

package sys

import (
	"sync"

	"golang.org/x/sys/unix"
)

var (
	kernelOnce  sync.Once
	kernelMajor int
	kernelMinor int
)

// KernelVersion returns the running kernel's major and minor version,
// zeros when uname fails.
func KernelVersion() (major int, minor int) {
	kernelOnce.Do(func() {
		var uname unix.Utsname
		if err := unix.Uname(&uname); err != nil {
			return
		}
		var (
			values [2]int
			value  int
			vi     int
		)
		for _, c := range uname.Release {
			if '0' <= c && c <= '9' {
				value = value*10 + int(c-'0')
			} else {
				values[vi] = value
				vi++
				if vi >= len(values) {
					break
				}
				value = 0
			}
		}
		kernelMajor, kernelMinor = values[0], values[1]
	})
	return kernelMajor, kernelMinor
}
