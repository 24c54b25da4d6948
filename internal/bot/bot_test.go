package bot

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("New", func() {
	When("no token is configured", func() {
		It("returns an error before talking to Telegram", func() {
			b, err := New(Config{}, nil)
			Expect(err).To(MatchError(ContainSubstring("telegram token is required")))
			Expect(b).To(BeNil())
		})
	})
})
