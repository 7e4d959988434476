package evalpipeline_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	. "github.com/permaweb/cu/evalpipeline"
)

var _ = Describe("type BatchingLocator", func() {
	It("coalesces concurrent lookups for the same process into one call", func() {
		var calls int32
		release := make(chan struct{})

		locator := &BatchingLocator{
			Locator: LocatorFunc(func(ctx context.Context, processID string) (SchedulerLocation, error) {
				atomic.AddInt32(&calls, 1)
				<-release
				return SchedulerLocation{URL: "su://" + processID}, nil
			}),
		}

		var wg sync.WaitGroup
		results := make([]SchedulerLocation, 5)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				loc, err := locator.Locate(context.Background(), "p1")
				Expect(err).NotTo(HaveOccurred())
				results[i] = loc
			}(i)
		}

		time.Sleep(5 * time.Millisecond) // let every caller enqueue behind the in-flight call
		close(release)
		wg.Wait()

		Expect(calls).To(Equal(int32(1)))
		for _, r := range results {
			Expect(r.URL).To(Equal("su://p1"))
		}
	})

	It("issues a fresh call once the prior one has completed", func() {
		var calls int32
		locator := &BatchingLocator{
			Locator: LocatorFunc(func(ctx context.Context, processID string) (SchedulerLocation, error) {
				atomic.AddInt32(&calls, 1)
				return SchedulerLocation{}, nil
			}),
		}

		_, err := locator.Locate(context.Background(), "p1")
		Expect(err).NotTo(HaveOccurred())
		_, err = locator.Locate(context.Background(), "p1")
		Expect(err).NotTo(HaveOccurred())

		Expect(calls).To(Equal(int32(2)))
	})
})
