//go:build unix

package kernel

import (
	"github.com/tklauser/go-sysconf"
)

// GetSysClktck returns the host's SC_CLK_TCK, backing defaultTickPeriod.
func GetSysClktck() (int64, error) {
	return sysconf.Sysconf(sysconf.SC_CLK_TCK)
}
