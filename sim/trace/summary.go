package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalAssignments int
	AcceptedCount    int
	RejectedCount    int
	RequeueCount     int
	ContestedCount   int // assignments that needed more than one selection pass
	MeanMargin       float64
	MinMargin        float64
	HostDistribution map[int]int // host ID → count of files assigned
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		HostDistribution: make(map[int]int),
	}
	if st == nil {
		return summary
	}

	for _, e := range st.Enqueues {
		switch {
		case !e.Accepted:
			summary.RejectedCount++
		case e.Requeue:
			summary.RequeueCount++
		default:
			summary.AcceptedCount++
		}
	}

	summary.TotalAssignments = len(st.Assignments)
	totalMargin := 0.0
	margins := 0
	for _, a := range st.Assignments {
		summary.HostDistribution[a.HostID]++
		if a.Attempts > 1 {
			summary.ContestedCount++
		}
		if a.QueueSize < 2 {
			continue
		}
		if margins == 0 || a.Margin < summary.MinMargin {
			summary.MinMargin = a.Margin
		}
		totalMargin += a.Margin
		margins++
	}
	if margins > 0 {
		summary.MeanMargin = totalMargin / float64(margins)
	}
	return summary
}
