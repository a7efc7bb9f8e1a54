package block

// Constant emits a fixed value on its single output.
type Constant struct {
	value float64
}

func NewConstant(value float64) *Constant {
	return &Constant{value: value}
}

func (c *Constant) Inputs() int              { return 0 }
func (c *Constant) Outputs() int             { return 1 }
func (c *Constant) SetInput(port int, v float64) {}
func (c *Constant) Output(port int) float64  { return c.value }
func (c *Constant) Update(t float64) float64 { return 0 }

// Source emits a time-dependent signal on its single output.
type Source struct {
	fn  func(t float64) float64
	out float64
}

func NewSource(fn func(t float64) float64) *Source {
	return &Source{fn: fn}
}

func (s *Source) Inputs() int                  { return 0 }
func (s *Source) Outputs() int                 { return 1 }
func (s *Source) SetInput(port int, v float64) {}
func (s *Source) Output(port int) float64      { return s.out }

func (s *Source) Update(t float64) float64 {
	v := s.fn(t)
	d := delta(v, s.out)
	s.out = v
	return d
}
