// pkg/utils/rusage.go

package utils

import (
	"fmt"
	"syscall"
)

type Rusage struct {
	syscall.Rusage
}

func (ru *Rusage) GetUtime() float64 {
	return float64(ru.Utime.Sec) + float64(ru.Utime.Usec)/1e6
}

func (ru *Rusage) GetStime() float64 {
	return float64(ru.Stime.Sec) + float64(ru.Stime.Usec)/1e6
}

// String summarizes the CPU time used so far against the wall clock.
func (ru *Rusage) String() string {
	return fmt.Sprintf("user %.3fs, sys %.3fs, wall %.3fs", ru.GetUtime(), ru.GetStime(), Clock().Seconds())
}

func GetRusage() *Rusage {
	var ru syscall.Rusage
	_ = syscall.Getrusage(syscall.RUSAGE_SELF, &ru)
	return &Rusage{ru}
}
