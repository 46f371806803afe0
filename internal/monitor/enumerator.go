package monitor

import (
	"fmt"
	"time"

	psnet "github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"

	"netsentry/internal/model"
)

// Snapshot enumerates the live TCP connection table joined against process
// ownership. Individual processes that vanish or deny access are skipped
// silently; an unreadable process or connection table is an error the caller
// treats as fatal.
func Snapshot() (model.ConnectionSnapshot, error) {
	pids, err := BuildProcessMap()
	if err != nil {
		return model.ConnectionSnapshot{}, err
	}
	conns, err := psnet.Connections("tcp")
	if err != nil {
		return model.ConnectionSnapshot{}, fmt.Errorf("failed to list tcp connections: %w", err)
	}
	return buildSnapshot(time.Now().UTC(), conns, pids), nil
}

// BuildProcessMap walks the process table into a pid to executable path map.
// Kernel threads and restricted processes often expose no executable path,
// so the bare process name stands in; entries with neither are dropped.
func BuildProcessMap() (map[int32]string, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}
	m := make(map[int32]string, len(procs))
	for _, p := range procs {
		if p.Pid == 0 {
			continue
		}
		exe, err := p.Exe()
		if err != nil || exe == "" {
			exe, err = p.Name()
			if err != nil || exe == "" {
				continue
			}
		}
		m[p.Pid] = exe
	}
	return m, nil
}

// buildSnapshot joins raw connection rows against the process map, keeping
// only established and listening sockets. An established connection without
// a resolvable remote endpoint cannot be correlated and is dropped.
func buildSnapshot(now time.Time, conns []psnet.ConnectionStat, pids map[int32]string) model.ConnectionSnapshot {
	snap := model.ConnectionSnapshot{Taken: now}
	for _, c := range conns {
		var state model.ConnState
		switch c.Status {
		case "ESTABLISHED":
			state = model.StateEstablished
		case "LISTEN":
			state = model.StateListen
		default:
			continue
		}
		remote := formatAddr(c.Raddr)
		if state == model.StateEstablished && remote == model.EndpointUnknown {
			continue
		}

		conn := model.Connection{
			State:   state,
			Local:   formatAddr(c.Laddr),
			Remote:  remote,
			ExePath: model.ExePathUnknown,
		}
		if c.Pid != 0 {
			pid := c.Pid
			conn.PID = &pid
			if exe, ok := pids[c.Pid]; ok {
				conn.ExePath = exe
			}
		}
		snap.Connections = append(snap.Connections, conn)
	}
	return snap
}

func formatAddr(a psnet.Addr) string {
	if a.IP == "" && a.Port == 0 {
		return model.EndpointUnknown
	}
	return fmt.Sprintf("%s:%d", a.IP, a.Port)
}
