package worker

import (
	"github.com/airenas/spacego/internal/pkg/cmdapp"
	"github.com/hashicorp/go-reap"
)

// the worker spawns ffmpeg children, reap them when running as pid 1
func reapChildren() {
	if !reap.IsSupported() {
		cmdapp.Log.Debug("Child reaping is not supported")
		return
	}
	cmdapp.Log.Debug("Init children reaper")
	pids := make(reap.PidCh, 1)
	go reap.ReapChildren(pids, nil, nil, nil)
	go debugReap(pids)
}

func debugReap(pids reap.PidCh) {
	for {
		pid := <-pids
		cmdapp.Log.Debugf("Reaped child process: %d", pid)
	}
}
