package graph_test

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/flowsim/internal/block"
	"github.com/san-kum/flowsim/internal/fixture"
	"github.com/san-kum/flowsim/internal/graph"
	"github.com/san-kum/flowsim/internal/solver"
)

// The testdata fixtures hold trajectories computed by an independent
// reference implementation of the same diagrams and scheme. A run must
// reproduce them point for point.
const pointTolerance = 1e-9

func loadFixture(name string) *fixture.Fixture {
	f, err := fixture.Load(filepath.Join("testdata", name))
	Expect(err).NotTo(HaveOccurred())
	return f
}

func runDiagram(sim *graph.Simulation, scope *block.Scope, duration float64) (times []float64, signals map[string][]float64) {
	Expect(sim.Run(context.Background(), duration)).To(Succeed())
	return scope.Read()
}

func expectSeries(got []float64, f *fixture.Fixture, name string) {
	want, err := f.Signal(name)
	Expect(err).NotTo(HaveOccurred())
	Expect(got).To(HaveLen(len(want)))
	for i := range want {
		Expect(got[i]).To(BeNumerically("~", want[i], pointTolerance),
			"signal %q diverges at point %d (t=%.4f)", name, i, f.Results.Time[i])
	}
}

var _ = Describe("Reference trajectories", func() {
	It("reproduces the simple integrator run", func() {
		f := loadFixture("simple_integrator.json")
		p := f.Parameters

		src := block.NewConstant(p["constant_value"])
		integ, err := block.NewIntegrator(p["initial_value"], solver.SSPRK22())
		Expect(err).NotTo(HaveOccurred())
		scope := block.NewScope("output")

		sim, err := graph.New(
			[]block.Block{src, integ, scope},
			[]graph.Connection{
				graph.Connect(src, 0, integ, 0),
				graph.Connect(integ, 0, scope, 0),
			},
			graph.Config{Dt: p["dt"]},
		)
		Expect(err).NotTo(HaveOccurred())

		times, signals := runDiagram(sim, scope, p["duration"])
		Expect(times).To(HaveLen(f.Results.NumPoints))
		expectSeries(signals["output"], f, "output")
	})

	It("reproduces the double integrator run", func() {
		f := loadFixture("double_integrator.json")
		p := f.Parameters

		accel := block.NewConstant(p["acceleration"])
		vel, err := block.NewIntegrator(p["initial_velocity"], solver.SSPRK22())
		Expect(err).NotTo(HaveOccurred())
		pos, err := block.NewIntegrator(p["initial_position"], solver.SSPRK22())
		Expect(err).NotTo(HaveOccurred())
		scope := block.NewScope("position", "velocity")

		sim, err := graph.New(
			[]block.Block{accel, vel, pos, scope},
			[]graph.Connection{
				graph.Connect(accel, 0, vel, 0),
				graph.Connect(vel, 0, pos, 0),
				graph.Connect(pos, 0, scope, 0),
				graph.Connect(vel, 0, scope, 1),
			},
			graph.Config{Dt: p["dt"]},
		)
		Expect(err).NotTo(HaveOccurred())

		_, signals := runDiagram(sim, scope, p["duration"])
		expectSeries(signals["position"], f, "position")
		expectSeries(signals["velocity"], f, "velocity")
	})

	It("reproduces the feedback decay run", func() {
		f := loadFixture("simple_feedback.json")
		p := f.Parameters

		integ, err := block.NewIntegrator(p["initial_value"], solver.SSPRK22())
		Expect(err).NotTo(HaveOccurred())
		amp := block.NewAmplifier(p["gain"])
		scope := block.NewScope("output")

		sim, err := graph.New(
			[]block.Block{integ, amp, scope},
			[]graph.Connection{
				graph.Connect(integ, 0, amp, 0),
				graph.Connect(amp, 0, integ, 0),
				graph.Connect(integ, 0, scope, 0),
			},
			graph.Config{Dt: p["dt"]},
		)
		Expect(err).NotTo(HaveOccurred())

		_, signals := runDiagram(sim, scope, p["duration"])
		expectSeries(signals["output"], f, "output")
	})

	It("reproduces the harmonic oscillator run", func() {
		f := loadFixture("harmonic_oscillator.json")
		p := f.Parameters

		pos, err := block.NewIntegrator(p["initial_position"], solver.SSPRK22())
		Expect(err).NotTo(HaveOccurred())
		vel, err := block.NewIntegrator(p["initial_velocity"], solver.SSPRK22())
		Expect(err).NotTo(HaveOccurred())
		spring := block.NewAmplifier(-p["omega"] * p["omega"])
		scope := block.NewScope("position", "velocity")

		sim, err := graph.New(
			[]block.Block{pos, vel, spring, scope},
			[]graph.Connection{
				graph.Connect(pos, 0, spring, 0),
				graph.Connect(spring, 0, vel, 0),
				graph.Connect(vel, 0, pos, 0),
				graph.Connect(pos, 0, scope, 0),
				graph.Connect(vel, 0, scope, 1),
			},
			graph.Config{Dt: p["dt"]},
		)
		Expect(err).NotTo(HaveOccurred())

		_, signals := runDiagram(sim, scope, p["duration"])
		expectSeries(signals["position"], f, "position")
		expectSeries(signals["velocity"], f, "velocity")
	})
})
