//go:build !windows

package progress

import "os"

func enableVirtualTerminal(f *os.File) {}
