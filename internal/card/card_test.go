package card

import (
	"encoding/json"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Record", func() {
	Describe("NewRecord", func() {
		It("should reject a candidate without a number", func() {
			_, err := NewRecord(Candidate{Expiration: &Expiration{Month: 1, Year: 2030}})
			Expect(err).To(MatchError(ErrNoNumber))
		})

		It("should reject a number with the wrong length", func() {
			_, err := NewRecord(Candidate{Number: "1234"})
			Expect(err).To(HaveOccurred())
		})

		It("should leave both expiration fields nil without an expiration", func() {
			r, err := NewRecord(Candidate{Number: "4111111111111111"})
			Expect(err).NotTo(HaveOccurred())
			Expect(r.ExpirationMonth).To(BeNil())
			Expect(r.ExpirationYear).To(BeNil())
		})
	})

	Describe("display helpers", func() {
		var r Record

		BeforeEach(func() {
			var err error
			r, err = NewRecord(Candidate{Number: "4111123456789010", Expiration: &Expiration{Month: 9, Year: 2025}})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should format the number in groups of four", func() {
			Expect(r.NumberDisplayString()).To(Equal("4111 1234 5678 9010"))
		})

		It("should format the expiration as MM/YY", func() {
			s, ok := r.ExpirationDisplayString()
			Expect(ok).To(BeTrue())
			Expect(s).To(Equal("09/25"))
		})

		It("should format the full year", func() {
			s, ok := r.ExpirationYearStringFull()
			Expect(ok).To(BeTrue())
			Expect(s).To(Equal("2025"))
		})

		It("should mask all but the last four digits", func() {
			Expect(r.MaskedNumber()).To(Equal("************9010"))
		})

		It("should encode to JSON", func() {
			data, err := json.Marshal(r)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(MatchJSON(`{"card_number":"4111123456789010","expiration_month":9,"expiration_year":2025}`))
		})

		When("there is no expiration", func() {
			BeforeEach(func() {
				r = Record{Number: "4111123456789010"}
			})

			It("should report no display string", func() {
				_, ok := r.ExpirationDisplayString()
				Expect(ok).To(BeFalse())
			})

			It("should omit the expiration from JSON", func() {
				data, err := json.Marshal(r)
				Expect(err).NotTo(HaveOccurred())
				Expect(string(data)).To(MatchJSON(`{"card_number":"4111123456789010"}`))
			})
		})
	})

	Describe("camera errors", func() {
		It("should be recognized through wrapping", func() {
			err := fmt.Errorf("starting source: %w", &CameraPermissionError{Status: StatusDenied})
			Expect(IsCameraPermission(err)).To(BeTrue())
			Expect(IsCameraInitialization(err)).To(BeFalse())
			Expect(err.Error()).To(ContainSubstring("denied"))
		})

		It("should unwrap the initialization cause", func() {
			cause := errors.New("no video device")
			err := error(&CameraInitializationError{Err: cause})
			Expect(IsCameraInitialization(err)).To(BeTrue())
			Expect(err).To(MatchError(cause))
		})
	})
})
