//go:build linux

package sys

import (
	"bufio"
	"os"
	"strings"
	"sync"
	"syscall"
)

var (
	somaxconn   = syscall.SOMAXCONN
	backlogOnce = sync.Once{}
)

const big = 0xFFFFFF

func dtoi(s string) (n int, i int, ok bool) {
	n = 0
	for i = 0; i < len(s) && '0' <= s[i] && s[i] <= '9'; i++ {
		n = n*10 + int(s[i]-'0')
		if n >= big {
			return big, i, false
		}
	}
	if i == 0 {
		return 0, 0, false
	}
	return n, i, true
}

// MaxListenerBacklog reads the kernel backlog cap once. Values a listen
// call passes above it are silently truncated by the kernel anyway.
func MaxListenerBacklog() int {
	backlogOnce.Do(func() {
		fd, err := os.Open("/proc/sys/net/core/somaxconn")
		if err != nil {
			return
		}
		defer func() {
			_ = fd.Close()
		}()
		rd := bufio.NewReader(fd)
		l, readLineErr := rd.ReadString('\n')
		if readLineErr != nil {
			return
		}
		f := strings.Fields(l)
		if len(f) == 0 {
			return
		}
		n, _, ok := dtoi(f[0])
		if n == 0 || !ok {
			return
		}
		if n > 1<<16-1 {
			n = maxAckBacklog(n)
		}
		somaxconn = n
	})
	return somaxconn
}

// Linux stores the backlog as uint16 before 4.1.
func maxAckBacklog(n int) int {
	major, minor := KernelVersion()
	size := 16
	if major > 4 || (major == 4 && minor >= 1) {
		size = 32
	}
	var maxAck uint = 1<<size - 1
	if uint(n) > maxAck {
		n = int(maxAck)
	}
	return n
}
