package spores

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("State machine", func() {
	DescribeTable("transitions",
		func(from, to State, allowed bool) {
			Expect(isAllowedTransition(from, to)).To(Equal(allowed))
		},
		Entry("initial to slack", StateInitialSolve, StateSlackConstrainedSolve, true),
		Entry("initial to terminated", StateInitialSolve, StateTerminated, true),
		Entry("slack to slack", StateSlackConstrainedSolve, StateSlackConstrainedSolve, true),
		Entry("slack to terminated", StateSlackConstrainedSolve, StateTerminated, true),
		Entry("slack back to initial", StateSlackConstrainedSolve, StateInitialSolve, false),
		Entry("initial to initial", StateInitialSolve, StateInitialSolve, false),
		Entry("terminated to slack", StateTerminated, StateSlackConstrainedSolve, false),
		Entry("terminated to terminated", StateTerminated, StateTerminated, false),
	)

	It("counts iterations as it advances", func() {
		m := newMachine(StateInitialSolve, 0)
		Expect(m.advance()).To(Succeed())
		Expect(m.advance()).To(Succeed())
		Expect(m.iteration).To(Equal(2))
		Expect(m.terminate()).To(Succeed())
		Expect(m.state.IsTerminal()).To(BeTrue())

		err := m.advance()
		Expect(err).To(MatchError(ContainSubstring("Terminated -> SlackConstrainedSolve")))
		Expect(m.iteration).To(Equal(2))
	})

	It("names unknown states", func() {
		Expect(State(9).String()).To(Equal("State(9)"))
	})
})
