package block

// Scope records its inputs on every committed timestep. It has one input
// port per label and no outputs; Sample is called by the driving loop after
// a timestep (and once at t=0), never during stage iteration.
type Scope struct {
	labels []string
	in     []float64
	times  []float64
	data   [][]float64
}

func NewScope(labels ...string) *Scope {
	if len(labels) == 0 {
		labels = []string{"output"}
	}
	data := make([][]float64, len(labels))
	return &Scope{
		labels: labels,
		in:     make([]float64, len(labels)),
		data:   data,
	}
}

func (s *Scope) Inputs() int  { return len(s.labels) }
func (s *Scope) Outputs() int { return 0 }

func (s *Scope) SetInput(port int, v float64) {
	s.in[port] = v
}

func (s *Scope) Output(port int) float64  { return 0 }
func (s *Scope) Update(t float64) float64 { return 0 }

// Sample appends the current inputs to the recording.
func (s *Scope) Sample(t float64) {
	s.times = append(s.times, t)
	for i, v := range s.in {
		s.data[i] = append(s.data[i], v)
	}
}

// Labels returns the signal names in port order.
func (s *Scope) Labels() []string {
	return append([]string(nil), s.labels...)
}

// Read returns the recorded times and the series for each label. The
// returned slices alias the recording; callers treat them as read-only.
func (s *Scope) Read() (times []float64, signals map[string][]float64) {
	signals = make(map[string][]float64, len(s.labels))
	for i, label := range s.labels {
		signals[label] = s.data[i]
	}
	return s.times, signals
}

// Len returns the number of recorded points.
func (s *Scope) Len() int { return len(s.times) }

// Reset drops the recording.
func (s *Scope) Reset() {
	s.times = nil
	for i := range s.data {
		s.data[i] = nil
	}
}
