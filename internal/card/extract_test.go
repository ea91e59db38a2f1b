package card

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func line(text string) RecognizedLine {
	return RecognizedLine{Text: text, Confidence: 0.9}
}

var _ = Describe("Extract", func() {
	var (
		lines     []RecognizedLine
		candidate Candidate
	)

	JustBeforeEach(func() {
		candidate = Extract(lines)
	})

	When("the frame has a card number and an expiration", func() {
		BeforeEach(func() {
			lines = []RecognizedLine{
				line("BANK OF EXAMPLE"),
				line("4111 1234 5678 9010"),
				line("VALID THRU 09/25"),
				line("JOHN APPLESEED"),
			}
		})

		It("should return both", func() {
			Expect(candidate.Number).To(Equal("4111123456789010"))
			Expect(candidate.Expiration).To(Equal(&Expiration{Month: 9, Year: 2025}))
		})
	})

	When("the frame has a card number only", func() {
		BeforeEach(func() {
			lines = []RecognizedLine{line("4111 1234 5678 9010")}
		})

		It("should return the number without expiration", func() {
			Expect(candidate.Number).To(Equal("4111123456789010"))
			Expect(candidate.Expiration).To(BeNil())
		})
	})

	When("lines are at or below the confidence threshold", func() {
		BeforeEach(func() {
			lines = []RecognizedLine{
				{Text: "4111 1234 5678 9010", Confidence: 0.3},
				{Text: "09/25", Confidence: 0.1},
			}
		})

		It("should ignore them", func() {
			Expect(candidate).To(Equal(Candidate{}))
		})
	})

	When("a low confidence line precedes a confident one", func() {
		BeforeEach(func() {
			lines = []RecognizedLine{
				{Text: "5555 5555 5555 4444", Confidence: 0.2},
				{Text: "4111 1234 5678 9010", Confidence: 0.31},
			}
		})

		It("should use the confident line", func() {
			Expect(candidate.Number).To(Equal("4111123456789010"))
		})
	})

	When("the frame contains two card numbers", func() {
		BeforeEach(func() {
			lines = []RecognizedLine{
				line("5555 5555 5555 4444"),
				line("4111 1234 5678 9010"),
			}
		})

		It("should keep the first one", func() {
			Expect(candidate.Number).To(Equal("5555555555554444"))
		})
	})

	When("the frame contains two expiration dates on separate lines", func() {
		BeforeEach(func() {
			lines = []RecognizedLine{
				line("4111 1234 5678 9010"),
				line("VALID FROM 01/2020"),
				line("VALID THRU 09/2025"),
			}
		})

		It("should drop the expiration", func() {
			Expect(candidate.Number).To(Equal("4111123456789010"))
			Expect(candidate.Expiration).To(BeNil())
		})
	})

	When("the frame contains three expiration dates", func() {
		BeforeEach(func() {
			lines = []RecognizedLine{
				line("4111 1234 5678 9010"),
				line("01/20"),
				line("09/25"),
				line("10/26"),
			}
		})

		It("should take the date after the dropped pair", func() {
			Expect(candidate.Number).To(Equal("4111123456789010"))
			Expect(candidate.Expiration).To(Equal(&Expiration{Month: 10, Year: 2026}))
		})
	})

	When("the frame has exactly four quick-read groups", func() {
		BeforeEach(func() {
			lines = []RecognizedLine{
				line("|4980"),
				line("1234|"),
				line("5678"),
				line("[9010]"),
				line("12/26"),
			}
		})

		It("should join them in order", func() {
			Expect(candidate.Number).To(Equal("4980123456789010"))
		})

		It("should keep the expiration", func() {
			Expect(candidate.Expiration).To(Equal(&Expiration{Month: 12, Year: 2026}))
		})
	})

	When("the frame has three quick-read groups", func() {
		BeforeEach(func() {
			lines = []RecognizedLine{line("4980"), line("1234"), line("5678"), line("09/25")}
		})

		It("should return no candidate", func() {
			Expect(candidate).To(Equal(Candidate{}))
		})
	})

	When("the frame has five quick-read groups", func() {
		BeforeEach(func() {
			lines = []RecognizedLine{line("4980"), line("1234"), line("5678"), line("9010"), line("1111")}
		})

		It("should return no candidate", func() {
			Expect(candidate.HasNumber()).To(BeFalse())
		})
	})

	When("the frame has a full number and quick-read groups", func() {
		BeforeEach(func() {
			lines = []RecognizedLine{
				line("4980"),
				line("1234"),
				line("5678"),
				line("9010"),
				line("4111 1111 1111 1111"),
			}
		})

		It("should prefer the full number", func() {
			Expect(candidate.Number).To(Equal("4111111111111111"))
		})
	})

	When("there are no lines", func() {
		BeforeEach(func() {
			lines = nil
		})

		It("should return no candidate", func() {
			Expect(candidate).To(Equal(Candidate{}))
		})
	})
})
