package sim

// Station is a passive spatial agent owning a capacity-bounded pool of
// parking slots. Vehicles acquire a slot when docking and release it on
// departure; the station itself never suspends.
type Station struct {
	proc     *Process
	Position int
	Slots    *Resource
}

// NewStation creates a station with the given slot capacity.
func NewStation(id string, position, capacity int) *Station {
	return &Station{
		proc:     NewProcess(id),
		Position: position,
		Slots:    NewResource(id+"/slots", capacity),
	}
}

func (st *Station) ID() string        { return st.proc.ID }
func (st *Station) Process() *Process { return st.proc }

// Resume is a no-op beyond activation: stations only react through their
// slot resource.
func (st *Station) Resume(sim *Simulator, out Outcome) {
	if out.Kind == OutcomeStart {
		st.proc.State = StateIdle
	}
}
