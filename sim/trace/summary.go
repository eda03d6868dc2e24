package trace

// Summary aggregates a run's records into the indicators reported for a
// transport-service design.
type Summary struct {
	ServedRequests   int
	RejectedRequests int
	OpenRequests     int

	MeanWaitTime float64 // submission to pickup, served requests only
	MeanRideTime float64 // pickup to dropoff, served requests only

	// MeanDetourRatio compares ride time against the no-detour trip time,
	// over served requests with a known direct time. 1.0 means no detour.
	MeanDetourRatio float64
	// TotalRideTime is occupied seat-seconds across all served trips.
	TotalRideTime int64

	ResourceDenials  int
	ResourceTimeouts int

	// TravelTime is total in-motion time per agent.
	TravelTime map[string]int64
}

// Summarize folds the collected records into a Summary.
func Summarize(st *SimulationTrace) *Summary {
	s := &Summary{TravelTime: make(map[string]int64)}

	final := make(map[string]string)
	submitted := make(map[string]int64)
	direct := make(map[string]int64)
	for _, rec := range st.Statuses {
		if _, seen := submitted[rec.RequestID]; !seen {
			submitted[rec.RequestID] = rec.Clock
			direct[rec.RequestID] = rec.Direct
		}
		final[rec.RequestID] = rec.Status
	}
	for _, status := range final {
		switch status {
		case "served":
			s.ServedRequests++
		case "rejected":
			s.RejectedRequests++
		default:
			s.OpenRequests++
		}
	}

	pickups := make(map[string]int64)
	var waitSum, rideSum int64
	var detourSum float64
	var waitN, rideN, detourN int
	for _, rec := range st.PlanSteps {
		switch rec.Kind {
		case "pickup":
			pickups[rec.RequestID] = rec.Clock
			if at, ok := submitted[rec.RequestID]; ok {
				waitSum += rec.Clock - at
				waitN++
			}
		case "dropoff":
			if at, ok := pickups[rec.RequestID]; ok {
				ride := rec.Clock - at
				rideSum += ride
				rideN++
				if d := direct[rec.RequestID]; d > 0 {
					detourSum += float64(ride) / float64(d)
					detourN++
				}
			}
		}
	}
	if waitN > 0 {
		s.MeanWaitTime = float64(waitSum) / float64(waitN)
	}
	if rideN > 0 {
		s.MeanRideTime = float64(rideSum) / float64(rideN)
	}
	if detourN > 0 {
		s.MeanDetourRatio = detourSum / float64(detourN)
	}
	s.TotalRideTime = rideSum

	for _, rec := range st.Resources {
		switch rec.Outcome {
		case ResourceDenied:
			s.ResourceDenials++
		case ResourceTimedOut:
			s.ResourceTimeouts++
		}
	}

	for _, rec := range st.Positions {
		s.TravelTime[rec.AgentID] += rec.Duration
	}

	return s
}
