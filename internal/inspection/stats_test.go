package inspection

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("CalcChange", func() {
	DescribeTable("formats the change as a whole percent",
		func(current, previous int64, want string) {
			Expect(CalcChange(current, previous)).To(Equal(want))
		},
		Entry("growth from zero", int64(5), int64(0), "+100%"),
		Entry("nothing at all", int64(0), int64(0), "0%"),
		Entry("halved", int64(3), int64(6), "-50%"),
		Entry("doubled", int64(8), int64(4), "+100%"),
		Entry("unchanged", int64(7), int64(7), "0%"),
		Entry("rounds to nearest", int64(2), int64(3), "-33%"),
		Entry("drop to zero", int64(0), int64(4), "-100%"),
	)
})

var _ = Describe("windows", func() {
	// Thursday
	now := time.Date(2026, 3, 12, 15, 4, 5, 0, time.Local)

	DescribeTable("WindowStart truncates now",
		func(p Period, want time.Time) {
			start, ok := WindowStart(p, now)
			Expect(ok).To(BeTrue())
			Expect(start).To(Equal(want))
		},
		Entry("day", PeriodDay, time.Date(2026, 3, 12, 0, 0, 0, 0, time.Local)),
		Entry("week starts on monday", PeriodWeek, time.Date(2026, 3, 9, 0, 0, 0, 0, time.Local)),
		Entry("month", PeriodMonth, time.Date(2026, 3, 1, 0, 0, 0, 0, time.Local)),
		Entry("year", PeriodYear, time.Date(2026, 1, 1, 0, 0, 0, 0, time.Local)),
	)

	It("treats sunday as the end of the week", func() {
		sunday := time.Date(2026, 3, 15, 23, 0, 0, 0, time.Local)
		start, _ := WindowStart(PeriodWeek, sunday)
		Expect(start).To(Equal(time.Date(2026, 3, 9, 0, 0, 0, 0, time.Local)))
	})

	It("has no bound for all", func() {
		_, ok := WindowStart(PeriodAll, now)
		Expect(ok).To(BeFalse())
	})

	It("steps back one period for the previous window", func() {
		start, _ := WindowStart(PeriodMonth, now)
		Expect(PreviousWindowStart(PeriodMonth, start)).To(Equal(time.Date(2026, 2, 1, 0, 0, 0, 0, time.Local)))
		start, _ = WindowStart(PeriodWeek, now)
		Expect(PreviousWindowStart(PeriodWeek, start)).To(Equal(time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local)))
	})

	It("rounds the approval rate to one decimal", func() {
		Expect(ApprovalRate(2, 1)).To(Equal(66.7))
		Expect(ApprovalRate(0, 0)).To(Equal(0.0))
		Expect(ApprovalRate(3, 0)).To(Equal(100.0))
	})
})
