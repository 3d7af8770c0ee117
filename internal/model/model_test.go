package model_test

import (
	"context"
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/hadron/internal/dynamo"
	"github.com/san-kum/hadron/internal/engine"
	"github.com/san-kum/hadron/internal/engine/enginetest"
	"github.com/san-kum/hadron/internal/geom"
	"github.com/san-kum/hadron/internal/model"
)

func particleAt(dim int, name string, pos ...float64) *model.Particle {
	p := model.NewParticle(dim)
	p.Name = name
	copy(p.Position, pos)
	return p
}

var _ = Describe("Model", func() {
	var (
		fake *enginetest.Fake
		m    *model.Model
	)

	BeforeEach(func() {
		fake = enginetest.New()
		var err error
		m, err = model.New(2, fake, model.WithSeed(1))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(m.Close()).To(Succeed())
	})

	It("rejects unsupported dimensions", func() {
		_, err := model.New(4, fake)
		Expect(err).To(MatchError(dynamo.ErrInvalidDimension))
		_, err = model.New(0, fake)
		Expect(err).To(MatchError(dynamo.ErrInvalidDimension))
	})

	It("starts with default parameters and statistics", func() {
		Expect(m.Input()).To(Equal(engine.DefaultParameters().In))
		Expect(m.StepCount()).To(BeZero())
		Expect(m.StepElapsedTime()).To(BeZero())
		Expect(m.RealTimeScale()).To(Equal(1.0))
	})

	Describe("particles", func() {
		It("validates what it adds", func() {
			Expect(m.AddParticle(nil)).To(MatchError(dynamo.ErrNilParticle))
			Expect(m.AddParticle(model.NewParticle(3))).To(MatchError(dynamo.ErrDimensionMismatch))

			lost := particleAt(2, "lost", math.NaN(), 0)
			Expect(m.AddParticle(lost)).To(MatchError(dynamo.ErrInvalidState))

			heavy := model.NewParticle(2)
			heavy.Mass = 0
			Expect(m.AddParticle(heavy)).To(MatchError(dynamo.ErrParameterBounds))

			a := particleAt(2, "A")
			Expect(m.AddParticle(a)).To(Succeed())
			Expect(m.AddParticle(a)).To(MatchError(dynamo.ErrDuplicateParticle))
			Expect(m.AddParticle(particleAt(2, "A"))).To(MatchError(dynamo.ErrDuplicateParticle))
			Expect(m.AddParticle(model.NewParticle(2))).To(Succeed())
			Expect(m.AddParticle(model.NewParticle(2))).To(Succeed())
			Expect(m.Len()).To(Equal(3))
		})

		It("looks particles up by name and index", func() {
			a, b := particleAt(2, "A"), particleAt(2, "B")
			Expect(m.AddParticle(a)).To(Succeed())
			Expect(m.AddParticle(b)).To(Succeed())

			Expect(m.FindParticle("B")).To(BeIdenticalTo(b))
			Expect(m.FindParticle("Z")).To(BeNil())
			Expect(m.ParticleIndex(b)).To(Equal(1))
			Expect(m.Particle(0)).To(BeIdenticalTo(a))

			_, err := m.ParticleIndex(model.NewParticle(2))
			Expect(err).To(MatchError(dynamo.ErrNotFound))
		})

		It("removes incident links and no others", func() {
			ps := make([]*model.Particle, 4)
			for i := range ps {
				ps[i] = model.NewParticle(2)
				Expect(m.AddParticle(ps[i])).To(Succeed())
			}
			for _, pair := range [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}, {0, 2}} {
				_, err := m.AddLink(ps[pair[0]], ps[pair[1]], 1)
				Expect(err).NotTo(HaveOccurred())
			}

			Expect(m.RemoveParticle(ps[1])).To(Succeed())
			Expect(m.Links()).To(HaveLen(3))
			for _, l := range m.Links() {
				Expect(l.Touches(ps[1])).To(BeFalse())
			}
			Expect(m.FindLink(ps[2], ps[3])).NotTo(BeNil())
			Expect(m.FindLink(ps[0], ps[2])).NotTo(BeNil())
			Expect(m.RemoveParticle(ps[1])).To(MatchError(dynamo.ErrNotFound))
		})
	})

	Describe("links", func() {
		var a, b *model.Particle

		BeforeEach(func() {
			a, b = particleAt(2, "A"), particleAt(2, "B")
			Expect(m.AddParticle(a)).To(Succeed())
			Expect(m.AddParticle(b)).To(Succeed())
		})

		It("rejects duplicates in either order", func() {
			l, err := m.AddLink(a, b, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(l.Strength).To(Equal(2.0))

			_, err = m.AddLink(a, b, 1)
			Expect(err).To(MatchError(dynamo.ErrDuplicateLink))
			_, err = m.AddLink(b, a, 1)
			Expect(err).To(MatchError(dynamo.ErrDuplicateLink))
			Expect(m.Links()).To(HaveLen(1))
		})

		It("rejects self links and foreign endpoints", func() {
			_, err := m.AddLink(a, a, 1)
			Expect(err).To(MatchError(dynamo.ErrSelfLink))
			_, err = m.AddLink(a, model.NewParticle(2), 1)
			Expect(err).To(MatchError(dynamo.ErrNotFound))
		})

		It("removes by unordered pair", func() {
			_, err := m.AddLink(a, b, 1)
			Expect(err).NotTo(HaveOccurred())

			removed, err := m.RemoveLink(b, a)
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(BeTrue())

			removed, err = m.RemoveLink(a, b)
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(BeFalse())
		})
	})

	Describe("random generation", func() {
		zone := geom.CenteredBox(2, 1)

		It("accepts the maximum link count", func() {
			batch, err := m.AddRandomParticles(5, 10, zone)
			Expect(err).NotTo(HaveOccurred())
			Expect(batch).To(HaveLen(5))
			Expect(m.Len()).To(Equal(5))
			Expect(m.Links()).To(HaveLen(10))
			for _, l := range m.Links() {
				Expect(l.A).NotTo(BeIdenticalTo(l.B))
			}
		})

		It("rejects one link too many without mutating", func() {
			Expect(m.AddParticle(particleAt(2, "keep"))).To(Succeed())
			_, err := m.AddRandomParticles(5, 11, zone)
			Expect(err).To(MatchError(dynamo.ErrTooManyLinks))
			Expect(m.Len()).To(Equal(1))
			Expect(m.Links()).To(BeEmpty())
		})

		It("links only new particles and never twice", func() {
			old := particleAt(2, "old")
			Expect(m.AddParticle(old)).To(Succeed())

			_, err := m.AddRandomParticles(20, 30, zone)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Links()).To(HaveLen(30))

			links := m.Links()
			for i, l := range links {
				Expect(l.Touches(old)).To(BeFalse())
				for _, other := range links[i+1:] {
					Expect(other.Joins(l.A, l.B)).To(BeFalse())
				}
			}
		})

		It("places inside the zone with spacing", func() {
			batch, err := m.AddRandomParticles(10, 0, zone)
			Expect(err).NotTo(HaveOccurred())
			// sqrt(volume) / count / 2
			minDist := 0.1
			for i, p := range batch {
				Expect(zone.Contains(p.Position)).To(BeTrue())
				for _, q := range batch[:i] {
					Expect(p.Position.Dist(q.Position)).To(BeNumerically(">=", minDist))
				}
			}
		})

		It("is reproducible for a seed", func() {
			other, err := model.New(2, enginetest.New(), model.WithSeed(1))
			Expect(err).NotTo(HaveOccurred())

			a, err := m.AddRandomParticles(6, 4, zone)
			Expect(err).NotTo(HaveOccurred())
			b, err := other.AddRandomParticles(6, 4, zone)
			Expect(err).NotTo(HaveOccurred())
			for i := range a {
				Expect(a[i].Position).To(Equal(b[i].Position))
				Expect(a[i].FillColor).To(Equal(b[i].FillColor))
			}
		})

		It("randomizes existing positions and stops motion", func() {
			p := particleAt(2, "A", 50, 50)
			p.Velocity[0] = 3
			Expect(m.AddParticle(p)).To(Succeed())

			Expect(m.RandomizePositions(zone)).To(Succeed())
			Expect(zone.Contains(p.Position)).To(BeTrue())
			Expect(p.Velocity).To(Equal(dynamo.State{0, 0}))
		})

		It("rejects a zone of the wrong dimension", func() {
			_, err := m.AddRandomParticles(3, 0, geom.CenteredBox(3, 1))
			Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))
			Expect(m.RandomizePositions(geom.CenteredBox(1, 1))).To(MatchError(dynamo.ErrDimensionMismatch))
		})
	})

	Describe("parameters", func() {
		It("reads and writes by name", func() {
			Expect(m.SetParameter("Gravity", 2.5)).To(Succeed())
			Expect(m.Parameter("Gravity")).To(Equal(2.5))
			Expect(m.Input().Gravity).To(Equal(2.5))

			Expect(m.SetParameter("Mass", 1)).To(MatchError(dynamo.ErrNotFound))
			_, err := m.Parameter("Mass")
			Expect(err).To(MatchError(dynamo.ErrNotFound))
		})
	})

	Describe("lifecycle", func() {
		var a, b *model.Particle

		BeforeEach(func() {
			a = particleAt(2, "A", 0, 0)
			a.Velocity[0] = 1
			b = particleAt(2, "B", 1, 0)
			b.Velocity[1] = 2
			Expect(m.AddParticle(a)).To(Succeed())
			Expect(m.AddParticle(b)).To(Succeed())
			_, err := m.AddLink(a, b, 1)
			Expect(err).NotTo(HaveOccurred())
		})

		It("freezes topology while active", func() {
			Expect(m.Start()).To(Succeed())
			Expect(m.Active()).To(BeTrue())

			Expect(m.AddParticle(model.NewParticle(2))).To(MatchError(dynamo.ErrActive))
			Expect(m.RemoveParticle(a)).To(MatchError(dynamo.ErrActive))
			_, err := m.AddLink(a, b, 1)
			Expect(err).To(MatchError(dynamo.ErrActive))
			_, err = m.RemoveLink(a, b)
			Expect(err).To(MatchError(dynamo.ErrActive))
			_, err = m.AddRandomParticles(1, 0, geom.CenteredBox(2, 1))
			Expect(err).To(MatchError(dynamo.ErrActive))
			Expect(m.RandomizePositions(geom.CenteredBox(2, 1))).To(MatchError(dynamo.ErrActive))
			Expect(m.Clear()).To(MatchError(dynamo.ErrActive))
		})

		It("treats repeated Start and Stop as no-ops", func() {
			Expect(m.Start()).To(Succeed())
			Expect(m.Start()).To(Succeed())
			Expect(fake.Starts).To(Equal(1))

			Expect(m.Stop()).To(Succeed())
			Expect(m.Stop()).To(Succeed())
			Expect(fake.Stops).To(Equal(1))
			Expect(m.Refresh()).To(Succeed())
		})

		It("keeps fixed particles and adopts the rest", func() {
			Expect(m.Start()).To(Succeed())

			a.Fixed = true
			a.Position[0], a.Position[1] = 7, 8
			a.Velocity[0], a.Velocity[1] = 0, 0

			Expect(m.Refresh()).To(Succeed())
			Expect(a.Position).To(Equal(dynamo.State{7, 8}))
			Expect(a.Velocity).To(Equal(dynamo.State{0, 0}))
			Expect(b.Position).To(Equal(dynamo.State{1, 2}))
			Expect(fake.LastFixed).To(Equal([]bool{true, false}))

			Expect(m.Refresh()).To(Succeed())
			Expect(a.Position).To(Equal(dynamo.State{7, 8}))
			Expect(b.Position).To(Equal(dynamo.State{1, 4}))
			Expect(m.StepCount()).To(Equal(int64(2)))
			Expect(m.StepElapsedTime()).To(Equal(0.5))
		})

		It("resumes from the engine's velocity when unpinned", func() {
			Expect(m.Start()).To(Succeed())
			a.Fixed = true
			a.Velocity[0] = 100
			Expect(m.Refresh()).To(Succeed())

			a.Fixed = false
			Expect(m.Refresh()).To(Succeed())
			Expect(a.Position).To(Equal(dynamo.State{100, 0}))
		})

		It("surfaces engine failures and stays active", func() {
			Expect(m.Start()).To(Succeed())
			fake.FailSync = context.DeadlineExceeded
			Expect(m.Refresh()).To(MatchError(dynamo.ErrEngineFailure))
			Expect(m.Active()).To(BeTrue())
			Expect(m.Stop()).To(Succeed())
		})
	})

	Describe("Refresher", func() {
		It("only exchanges after the engine advanced", func() {
			Expect(m.AddParticle(particleAt(2, "A"))).To(Succeed())
			Expect(m.Start()).To(Succeed())

			calls := 0
			r := model.NewRefresher(m, time.Millisecond)
			r.OnRefresh = func(*model.Model) { calls++ }

			Expect(r.Tick()).To(BeTrue())
			Expect(r.Tick()).To(BeTrue(), "the exchange itself advances the fake engine")
			Expect(calls).To(Equal(2))

			Expect(m.Stop()).To(Succeed())
			Expect(r.Tick()).To(BeFalse())
			Expect(calls).To(Equal(2))
		})

		It("runs until cancelled", func() {
			Expect(m.AddParticle(particleAt(2, "A"))).To(Succeed())
			Expect(m.Start()).To(Succeed())

			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()
			err := model.NewRefresher(m, time.Millisecond).Run(ctx)
			Expect(err).To(MatchError(context.DeadlineExceeded))
			Expect(m.StepCount()).To(BeNumerically(">", 0))
		})
	})
})

var _ = Describe("Model with the local engine", func() {
	It("runs, stops and restarts cleanly", func() {
		local := engine.NewLocal(engine.LocalOptions{SyncPeriod: time.Millisecond})
		m, err := model.New(2, local, model.WithSeed(7))
		Expect(err).NotTo(HaveOccurred())
		defer m.Close()

		a := particleAt(2, "A", 0, 0)
		b := particleAt(2, "B", 1, 0)
		c := particleAt(2, "C", 0, 1)
		for _, p := range []*model.Particle{a, b, c} {
			Expect(m.AddParticle(p)).To(Succeed())
		}
		_, err = m.AddLink(a, b, 1)
		Expect(err).NotTo(HaveOccurred())

		Expect(m.Start()).To(Succeed())
		Expect(m.Active()).To(BeTrue())

		var last int64
		for i := 0; i < 3; i++ {
			Eventually(func() int64 {
				Expect(m.Refresh()).To(Succeed())
				return m.StepCount()
			}, 5*time.Second, time.Millisecond).Should(BeNumerically(">", last))
			last = m.StepCount()
		}
		for _, p := range []*model.Particle{a, b, c} {
			Expect(p.Position.IsValid()).To(BeTrue())
		}

		Expect(m.Stop()).To(Succeed())
		Expect(m.Active()).To(BeFalse())
		Expect(m.ActualStepCount()).To(BeZero())

		Expect(m.Start()).To(Succeed())
		Expect(m.StepCount()).To(BeZero())
		Eventually(func() int64 {
			Expect(m.Refresh()).To(Succeed())
			return m.StepCount()
		}, 5*time.Second, time.Millisecond).Should(BeNumerically(">", 0))
	})
})
