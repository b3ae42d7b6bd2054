package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/auctionio/auctionio/sim"
	"github.com/auctionio/auctionio/sim/trace"
)

func printResult(w io.Writer, res *sim.Result) {
	fmt.Fprintln(w, "=== Run Result ===")
	fmt.Fprintf(w, "Run ID               : %s\n", res.RunID)
	fmt.Fprintf(w, "End Reason           : %s\n", res.Reason)
	fmt.Fprintf(w, "Wall Time            : %v\n", res.Ended.Sub(res.Started).Round(time.Millisecond))
	fmt.Fprintf(w, "Accepted Clients     : %d\n", res.Accepted)
	fmt.Fprintf(w, "Rejected Clients     : %d\n", res.Rejected)
	fmt.Fprintf(w, "Completed Clients    : %d\n", res.Completed)
	fmt.Fprintf(w, "Dropped Clients      : %d\n", res.Dropped)
	fmt.Fprintf(w, "Failed Clients       : %d\n", res.Failed)
	fmt.Fprintf(w, "Unserved Clients     : %d\n", res.Unserved)
	hostIDs := make([]sim.HostID, 0, len(res.HostServed))
	for id := range res.HostServed {
		hostIDs = append(hostIDs, id)
	}
	sort.Slice(hostIDs, func(i, j int) bool { return hostIDs[i] < hostIDs[j] })
	for _, id := range hostIDs {
		fmt.Fprintf(w, "Host %-3d Transfers   : %d\n", id, res.HostServed[id])
	}
}

// printStandings shows the clients still queued in selection order.
func printStandings(w io.Writer, standings []sim.Standing) {
	fmt.Fprintln(w, "=== Queue Standings ===")
	fmt.Fprintf(w, "%-5s %-8s %-10s %-10s %s\n", "rank", "client", "wait", "volume", "coefficient")
	for _, s := range standings {
		fmt.Fprintf(w, "%-5d %-8d %-10.2f %-10.0f %.4f\n", s.Rank, s.ClientID, s.WaitTicks, s.Volume, s.Score)
	}
}

func printTraceSummary(w io.Writer, s *trace.TraceSummary) {
	fmt.Fprintln(w, "=== Decision Trace ===")
	fmt.Fprintf(w, "Assignments          : %d\n", s.TotalAssignments)
	fmt.Fprintf(w, "Enqueued / Requeued  : %d / %d\n", s.AcceptedCount, s.RequeueCount)
	fmt.Fprintf(w, "Rejected             : %d\n", s.RejectedCount)
	fmt.Fprintf(w, "Contested            : %d\n", s.ContestedCount)
	fmt.Fprintf(w, "Winning Margin       : mean %.4f, min %.4f\n", s.MeanMargin, s.MinMargin)
}

func writeTrace(path string, st *trace.SimulationTrace) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := st.WriteJSON(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func printValidation(w io.Writer, cfg sim.Config, arrivals []sim.Arrival) {
	files := 0
	for _, a := range arrivals {
		files += len(a.Volumes)
	}
	fmt.Fprintln(w, "Configuration OK")
	fmt.Fprintf(w, "Hosts                : %d\n", cfg.Hosts)
	fmt.Fprintf(w, "Tick                 : %v\n", cfg.Tick)
	fmt.Fprintf(w, "Reenqueue Mode       : %s\n", cfg.Reenqueue)
	fmt.Fprintf(w, "Failure Policy       : %s\n", cfg.FailurePolicy)
	fmt.Fprintf(w, "Clients              : %d\n", len(arrivals))
	fmt.Fprintf(w, "Files                : %d\n", files)
	if len(arrivals) > 0 {
		fmt.Fprintf(w, "Last Arrival         : %v\n", arrivals[len(arrivals)-1].Offset)
	}
}
