package card

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type emission struct {
	record Record
	resume Resume
}

var _ = Describe("Session", func() {
	var (
		session   *Session
		emissions []emission
		full      Candidate
		noExp     Candidate
	)

	BeforeEach(func() {
		emissions = nil
		session = NewSession(func(r Record, resume Resume) {
			emissions = append(emissions, emission{record: r, resume: resume})
		})
		full = Candidate{Number: "4111123456789010", Expiration: &Expiration{Month: 9, Year: 2025}}
		noExp = Candidate{Number: "4111123456789010"}
	})

	Describe("Process", func() {
		When("the candidate has no number", func() {
			It("should not emit or count a retry", func() {
				session.Process(Candidate{Expiration: &Expiration{Month: 1, Year: 2030}})
				Expect(emissions).To(BeEmpty())
				Expect(session.State().RetryCount).To(Equal(0))
			})
		})

		When("the candidate has a number and an expiration", func() {
			BeforeEach(func() {
				session.Process(full)
			})

			It("should emit the record", func() {
				Expect(emissions).To(HaveLen(1))
				Expect(emissions[0].record.Number).To(Equal("4111123456789010"))
				Expect(*emissions[0].record.ExpirationMonth).To(Equal(9))
				Expect(*emissions[0].record.ExpirationYear).To(Equal(2025))
			})

			It("should pause the session", func() {
				Expect(session.State().Paused).To(BeTrue())
			})

			It("should expose the result", func() {
				r, ok := session.Result()
				Expect(ok).To(BeTrue())
				Expect(r.Number).To(Equal("4111123456789010"))
			})
		})

		When("the expiration is missing", func() {
			It("should wait for three frames before emitting without it", func() {
				for i := 1; i <= DefaultRetryLimit; i++ {
					session.Process(noExp)
					Expect(emissions).To(BeEmpty())
					Expect(session.State().RetryCount).To(Equal(i))
				}

				session.Process(noExp)
				Expect(emissions).To(HaveLen(1))
				Expect(emissions[0].record.HasExpiration()).To(BeFalse())
				Expect(emissions[0].record.ExpirationMonth).To(BeNil())
				Expect(emissions[0].record.ExpirationYear).To(BeNil())
				Expect(session.State().RetryCount).To(Equal(0))
			})

			It("should emit as soon as a later frame has the expiration", func() {
				session.Process(noExp)
				session.Process(noExp)
				session.Process(full)
				Expect(emissions).To(HaveLen(1))
				Expect(emissions[0].record.HasExpiration()).To(BeTrue())
				Expect(session.State().RetryCount).To(Equal(0))
			})

			It("should not reset the count on frames without a number", func() {
				session.Process(noExp)
				session.Process(Candidate{})
				Expect(session.State().RetryCount).To(Equal(1))
			})
		})

		When("the retry limit is configured", func() {
			BeforeEach(func() {
				session = NewSession(func(r Record, resume Resume) {
					emissions = append(emissions, emission{record: r, resume: resume})
				}, WithRetryLimit(0))
			})

			It("should emit right away", func() {
				session.Process(noExp)
				Expect(emissions).To(HaveLen(1))
			})
		})
	})

	Describe("pausing", func() {
		BeforeEach(func() {
			session.Process(full)
		})

		It("should ignore frames until resumed", func() {
			session.Process(full)
			session.Process(noExp)
			Expect(emissions).To(HaveLen(1))
			Expect(session.State().RetryCount).To(Equal(0))
		})

		It("should emit again after the resume handle is called", func() {
			emissions[0].resume()
			Expect(session.State().Paused).To(BeFalse())
			_, ok := session.Result()
			Expect(ok).To(BeFalse())

			session.Process(full)
			Expect(emissions).To(HaveLen(2))
		})

		It("should emit again after a manual resume", func() {
			session.Resume()
			session.Process(full)
			Expect(emissions).To(HaveLen(2))
		})

		It("should ignore a resume handle from an earlier cycle", func() {
			stale := emissions[0].resume
			session.Resume()
			session.Process(full)
			Expect(session.State().Paused).To(BeTrue())

			stale()
			Expect(session.State().Paused).To(BeTrue())
		})
	})

	Describe("Stop", func() {
		It("should ignore frames after stopping", func() {
			session.Stop()
			session.Process(full)
			Expect(emissions).To(BeEmpty())
			Expect(session.Stopped()).To(BeTrue())
		})

		It("should drop an emission that runs after stopping", func() {
			var pending []func()
			session = NewSession(func(r Record, resume Resume) {
				emissions = append(emissions, emission{record: r, resume: resume})
			}, WithDispatcher(func(fn func()) {
				pending = append(pending, fn)
			}))

			session.Process(full)
			Expect(pending).To(HaveLen(1))

			session.Stop()
			pending[0]()
			Expect(emissions).To(BeEmpty())
		})

		It("should not resume a stopped session", func() {
			session.Process(full)
			session.Stop()
			emissions[0].resume()
			Expect(session.State().Paused).To(BeTrue())
		})
	})

	Describe("concurrent frames", func() {
		It("should emit once until resumed", func() {
			var mu sync.Mutex
			count := 0
			session = NewSession(func(Record, Resume) {
				mu.Lock()
				count++
				mu.Unlock()
			})

			var wg sync.WaitGroup
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					session.Process(full)
				}()
			}
			wg.Wait()

			Expect(count).To(Equal(1))
		})
	})

	Describe("a resume handle called from inside emit", func() {
		It("should not deadlock", func() {
			session = NewSession(func(r Record, resume Resume) {
				emissions = append(emissions, emission{record: r, resume: resume})
				resume()
			})

			session.Process(full)
			session.Process(full)
			Expect(emissions).To(HaveLen(2))
		})
	})
})
