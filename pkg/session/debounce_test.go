package session

import (
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("debouncer", func() {
	var (
		fired atomic.Int32
		d     *debouncer
	)

	BeforeEach(func() {
		fired.Store(0)
		d = newDebouncer(20*time.Millisecond, func() { fired.Add(1) })
	})

	It("should fire once after the last trigger", func() {
		for i := 0; i < 10; i++ {
			d.Trigger()
		}
		Expect(d.Pending()).To(BeTrue())

		Eventually(fired.Load).Should(Equal(int32(1)))
		Consistently(fired.Load, "60ms").Should(Equal(int32(1)))
		Expect(d.Pending()).To(BeFalse())
	})

	It("should fire again for a later burst", func() {
		d.Trigger()
		Eventually(fired.Load).Should(Equal(int32(1)))
		d.Trigger()
		Eventually(fired.Load).Should(Equal(int32(2)))
	})

	It("should not fire after Cancel but keep working", func() {
		d.Trigger()
		d.Cancel()
		Consistently(fired.Load, "60ms").Should(BeZero())

		d.Trigger()
		Eventually(fired.Load).Should(Equal(int32(1)))
	})

	It("should ignore triggers after Stop", func() {
		d.Stop()
		d.Trigger()
		Expect(d.Pending()).To(BeFalse())
		Consistently(fired.Load, "60ms").Should(BeZero())
	})
})
