package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/facepunch/internal/adapters/mq/worker"
	"github.com/okian/facepunch/internal/adapters/storage"
	service "github.com/okian/facepunch/internal/app"
	"github.com/okian/facepunch/internal/domain/model"
	"github.com/okian/facepunch/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

var (
	faceA   = model.Embedding{0, 0, 0, 0}
	faceB   = model.Embedding{1, 1, 1, 1}
	faceFar = model.Embedding{5, 5, 5, 5}
	epoch   = time.Date(2025, time.March, 14, 9, 0, 0, 0, time.UTC)
)

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// flakyPersister fails writes on demand.
type flakyPersister struct {
	*storage.Memory
	failAppend bool
	failSave   bool
	failLoad   bool
}

func (f *flakyPersister) Load(ctx context.Context) (storage.Snapshot, error) {
	if f.failLoad {
		return storage.Snapshot{}, fmt.Errorf("%w: offline", storage.ErrStorageUnavailable)
	}
	return f.Memory.Load(ctx)
}

func (f *flakyPersister) AppendRecord(ctx context.Context, r model.AttendanceRecord) error {
	if f.failAppend {
		return errors.New("disk full")
	}
	return f.Memory.AppendRecord(ctx, r)
}

func (f *flakyPersister) SaveUser(ctx context.Context, u model.User, e model.Embedding) error {
	if f.failSave {
		return errors.New("disk full")
	}
	return f.Memory.SaveUser(ctx, u, e)
}

// frames builds a finite camera where each element is the face list of one frame.
func frames(faces ...[]model.Embedding) worker.Camera {
	return worker.NewSliceCamera(worker.FacesFrames(faces...)...)
}

func single(e model.Embedding) []model.Embedding { return []model.Embedding{e} }

func repeat(e model.Embedding, n int) [][]model.Embedding {
	out := make([][]model.Embedding, n)
	for i := range out {
		out[i] = single(e)
	}
	return out
}

func newService(clock *fakeClock, opts ...service.Option) *service.Service {
	base := []service.Option{
		service.WithEmbeddingDim(4),
		service.WithCaptureWorkers(4),
		service.WithClock(clock.Now),
		service.WithSessionTimeout(5 * time.Second),
		service.WithEnrollmentTimeout(5 * time.Second),
		service.WithLogger(logger.Nop()),
	}
	return service.New(append(base, opts...)...)
}

func mustStart(svc *service.Service) {
	So(svc.Start(context.Background()), ShouldBeNil)
}

func mustEnroll(svc *service.Service, id, name string, face model.Embedding) {
	_, err := svc.Enroll(context.Background(), model.User{ID: id, Name: name}, frames(repeat(face, 5)...), worker.Precomputed{})
	So(err, ShouldBeNil)
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
			stats := svc.GetStats()
			So(stats["started"], ShouldBeFalse)
			So(stats["tolerance"], ShouldEqual, 0.5)
			So(stats["requiredStreak"], ShouldEqual, 3)
			So(stats["lookbackWindow"], ShouldEqual, "1m0s")
		})

		Convey("Then operations before Start are refused", func() {
			_, err := svc.Users(context.Background())
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)

			_, err = svc.RunSession(context.Background(), model.ActionPunchIn, frames(), worker.Precomputed{})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})
	})
}

func TestService_Start(t *testing.T) {
	Convey("Given a persister with existing state", t, func() {
		ctx := context.Background()
		mem := storage.NewMemory()
		So(mem.SaveUser(ctx, model.User{ID: "U1", Name: "Ada"}, faceA), ShouldBeNil)
		So(mem.AppendRecord(ctx, model.AttendanceRecord{ID: "r1", UserID: "U1", Action: model.ActionPunchIn, Timestamp: epoch}), ShouldBeNil)

		clock := &fakeClock{now: epoch}
		svc := newService(clock, service.WithPersister(mem))
		defer svc.Stop()

		Convey("When starting the service", func() {
			err := svc.Start(ctx)

			Convey("Then state is restored", func() {
				So(err, ShouldBeNil)
				stats := svc.GetStats()
				So(stats["started"], ShouldBeTrue)
				So(stats["users"], ShouldEqual, 1)
				So(stats["records"], ShouldEqual, 1)
				So(stats["recordsToday"], ShouldEqual, 1)
			})

			Convey("Then starting twice is a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})
		})
	})

	Convey("Given a persister that cannot load", t, func() {
		p := &flakyPersister{Memory: storage.NewMemory(), failLoad: true}
		svc := newService(&fakeClock{now: epoch}, service.WithPersister(p))

		Convey("When starting the service", func() {
			err := svc.Start(context.Background())

			Convey("Then the storage error is returned and the service stays stopped", func() {
				So(errors.Is(err, storage.ErrStorageUnavailable), ShouldBeTrue)
				So(svc.GetStats()["started"], ShouldBeFalse)
			})
		})
	})
}

func TestService_Stop(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := newService(&fakeClock{now: epoch})
		mustStart(svc)

		Convey("When stopping it", func() {
			svc.Stop()
			svc.Stop()

			Convey("Then it reports as stopped", func() {
				So(svc.GetStats()["started"], ShouldBeFalse)
			})
		})
	})
}
