package reminder

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/goleak"
)

type fakeSource struct {
	mu       sync.Mutex
	pending  []*Reminder
	claims   int
	notified []int64
}

func (f *fakeSource) ClaimDue(_ context.Context, now time.Time, limit int) ([]*Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claims++
	var out, rest []*Reminder
	for _, rem := range f.pending {
		if len(out) < limit && rem.Due(now) {
			rem.MarkSent(now)
			out = append(out, rem)
			continue
		}
		rest = append(rest, rem)
	}
	f.pending = rest
	return out, nil
}

func (f *fakeSource) Notify(_ context.Context, rem *Reminder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notified = append(f.notified, rem.ID)
	return nil
}

func (f *fakeSource) add(rem *Reminder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, rem)
}

func (f *fakeSource) notifiedIDs() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.notified...)
}

var _ = Describe("Dispatcher", func() {
	var (
		baseline goleak.Option
		source   *fakeSource
		logger   *slog.Logger
		now      time.Time
	)

	BeforeEach(func() {
		baseline = goleak.IgnoreCurrent()
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		source = &fakeSource{}
		now = time.Now()
	})

	AfterEach(func() {
		goleak.VerifyNone(GinkgoT(), baseline)
	})

	It("notifies every due reminder on the first poll", func() {
		// Given
		for id := int64(1); id <= 5; id++ {
			source.add(&Reminder{ID: id, Status: StatusPending, RemindAt: now.Add(-time.Minute)})
		}
		source.add(&Reminder{ID: 6, Status: StatusPending, RemindAt: now.Add(time.Hour)})

		// When
		d := NewDispatcher(source, DispatcherConfig{PollInterval: time.Hour, BatchSize: 2, MaxWorkers: 3}, logger)
		d.Start()

		// Then
		Eventually(source.notifiedIDs).Should(ConsistOf(int64(1), int64(2), int64(3), int64(4), int64(5)))
		d.Shutdown()
	})

	It("picks up reminders that become due on later polls", func() {
		d := NewDispatcher(source, DispatcherConfig{PollInterval: 10 * time.Millisecond}, logger)
		d.Start()

		source.add(&Reminder{ID: 7, Status: StatusPending, RemindAt: now})

		Eventually(source.notifiedIDs).Should(ConsistOf(int64(7)))
		d.Shutdown()
	})

	It("shuts down cleanly when called twice", func() {
		d := NewDispatcher(source, DispatcherConfig{PollInterval: time.Hour}, logger)
		d.Start()
		d.Start()

		d.Shutdown()
		d.Shutdown()
	})
})
