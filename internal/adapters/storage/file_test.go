package storage_test

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/facepunch/internal/adapters/storage"
	"github.com/okian/facepunch/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

var registered = time.Date(2025, time.March, 14, 8, 0, 0, 0, time.UTC)

func TestFileStore_RoundTrip(t *testing.T) {
	convey.Convey("Given a file store in an empty directory", t, func() {
		ctx := context.Background()
		dir := filepath.Join(t.TempDir(), "data")

		fs, err := storage.OpenFileStore(ctx, dir)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then it starts empty", func() {
			snap, err := fs.Load(ctx)
			convey.So(err, convey.ShouldBeNil)
			convey.So(snap.Enrolled, convey.ShouldBeEmpty)
			convey.So(snap.Records, convey.ShouldBeEmpty)
		})

		convey.Convey("When users and records are written and the directory is reopened", func() {
			convey.So(fs.SaveUser(ctx, model.User{ID: "U2", Name: "Lin", RegisteredAt: registered}, model.Embedding{0.3, 0.4}), convey.ShouldBeNil)
			convey.So(fs.SaveUser(ctx, model.User{ID: "U1", Name: "Ada", RegisteredAt: registered}, model.Embedding{0.1, 0.2}), convey.ShouldBeNil)
			// Re-enrollment keeps U2 first.
			convey.So(fs.SaveUser(ctx, model.User{ID: "U2", Name: "Lin", RegisteredAt: registered}, model.Embedding{0.5, 0.6}), convey.ShouldBeNil)

			rec := model.AttendanceRecord{
				ID: "r1", UserID: "U1", Name: "Ada", Action: model.ActionPunchIn,
				Confidence: 0.87, Timestamp: registered.Add(time.Hour),
			}
			convey.So(fs.AppendRecord(ctx, rec), convey.ShouldBeNil)

			reopened, err := storage.OpenFileStore(ctx, dir)
			convey.So(err, convey.ShouldBeNil)
			snap, err := reopened.Load(ctx)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then enrollment order and contents survive", func() {
				convey.So(len(snap.Enrolled), convey.ShouldEqual, 2)
				convey.So(snap.Enrolled[0].User.ID, convey.ShouldEqual, "U2")
				convey.So(snap.Enrolled[0].Embedding, convey.ShouldResemble, model.Embedding{0.5, 0.6})
				convey.So(snap.Enrolled[1].User.Name, convey.ShouldEqual, "Ada")
				convey.So(snap.Enrolled[1].User.RegisteredAt.Equal(registered), convey.ShouldBeTrue)
			})

			convey.Convey("Then the ledger survives", func() {
				convey.So(len(snap.Records), convey.ShouldEqual, 1)
				convey.So(snap.Records[0].ID, convey.ShouldEqual, "r1")
				convey.So(snap.Records[0].Action, convey.ShouldEqual, model.ActionPunchIn)
				convey.So(snap.Records[0].Confidence, convey.ShouldEqual, 0.87)
				convey.So(snap.Records[0].Timestamp.Equal(rec.Timestamp), convey.ShouldBeTrue)
			})

			convey.Convey("Then the raw attendance file carries derived date and time", func() {
				raw, err := os.ReadFile(filepath.Join(dir, storage.AttendanceFile))
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(raw), convey.ShouldContainSubstring, `"date": "2025-03-14"`)
				convey.So(string(raw), convey.ShouldContainSubstring, `"time": "09:00:00"`)
			})

			convey.Convey("Then no temp files are left behind", func() {
				entries, _ := os.ReadDir(dir)
				convey.So(len(entries), convey.ShouldEqual, 3)
			})
		})
	})
}

func TestFileStore_Malformed(t *testing.T) {
	convey.Convey("Given a data directory with corrupt files", t, func() {
		ctx := context.Background()
		dir := t.TempDir()

		convey.Convey("When users.json is not JSON", func() {
			_ = os.WriteFile(filepath.Join(dir, storage.UsersFile), []byte("{nope"), 0o600)
			_, err := storage.OpenFileStore(ctx, dir)

			convey.Convey("Then opening fails as malformed", func() {
				convey.So(errors.Is(err, storage.ErrMalformed), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a user has no embedding", func() {
			_ = os.WriteFile(filepath.Join(dir, storage.UsersFile),
				[]byte(`{"U1": {"user_id": "U1", "name": "Ada", "registered_at": "2025-03-14T08:00:00Z"}}`), 0o600)
			_, err := storage.OpenFileStore(ctx, dir)

			convey.Convey("Then opening fails as malformed", func() {
				convey.So(errors.Is(err, storage.ErrMalformed), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When an attendance record has an unknown action", func() {
			_ = os.WriteFile(filepath.Join(dir, storage.AttendanceFile),
				[]byte(`[{"user_id": "U1", "name": "Ada", "action": "coffee", "timestamp": "2025-03-14T08:00:00Z", "confidence": 0.9}]`), 0o600)
			_, err := storage.OpenFileStore(ctx, dir)

			convey.Convey("Then opening fails as malformed", func() {
				convey.So(errors.Is(err, storage.ErrMalformed), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When embeddings.cbor is garbage", func() {
			_ = os.WriteFile(filepath.Join(dir, storage.EmbeddingsFile), []byte{0xff, 0x00, 0x13}, 0o600)
			_, err := storage.OpenFileStore(ctx, dir)

			convey.Convey("Then opening fails as malformed", func() {
				convey.So(errors.Is(err, storage.ErrMalformed), convey.ShouldBeTrue)
			})
		})
	})
}

func TestFileStore_Rollback(t *testing.T) {
	convey.Convey("Given a file store with one enrolled user", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		fs, err := storage.OpenFileStore(ctx, dir)
		convey.So(err, convey.ShouldBeNil)
		convey.So(fs.SaveUser(ctx, model.User{ID: "U1", Name: "Ada", RegisteredAt: registered}, model.Embedding{1, 2}), convey.ShouldBeNil)

		before, _ := os.ReadFile(filepath.Join(dir, storage.EmbeddingsFile))

		convey.Convey("When users.json cannot be replaced", func() {
			// A directory in place of users.json makes the rename fail.
			usersPath := filepath.Join(dir, storage.UsersFile)
			convey.So(os.Remove(usersPath), convey.ShouldBeNil)
			convey.So(os.MkdirAll(filepath.Join(usersPath, "blocker"), 0o755), convey.ShouldBeNil)

			err := fs.SaveUser(ctx, model.User{ID: "U2", Name: "Lin", RegisteredAt: registered}, model.Embedding{3, 4})

			convey.Convey("Then the write fails as storage unavailable", func() {
				convey.So(errors.Is(err, storage.ErrStorageUnavailable), convey.ShouldBeTrue)
			})

			convey.Convey("Then embeddings.cbor is restored", func() {
				after, _ := os.ReadFile(filepath.Join(dir, storage.EmbeddingsFile))
				convey.So(after, convey.ShouldResemble, before)
			})

			convey.Convey("Then the cached state is unchanged", func() {
				snap, _ := fs.Load(ctx)
				convey.So(len(snap.Enrolled), convey.ShouldEqual, 1)
			})
		})
	})
}

func TestFileStore_RefusesWhatLoadRejects(t *testing.T) {
	convey.Convey("Given a file store with one enrolled user", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		fs, err := storage.OpenFileStore(ctx, dir)
		convey.So(err, convey.ShouldBeNil)
		convey.So(fs.SaveUser(ctx, model.User{ID: "U1", Name: "Ada", Department: "R&D", RegisteredAt: registered},
			model.Embedding{1, 2, 3}), convey.ShouldBeNil)

		cases := []struct {
			name string
			user model.User
			emb  model.Embedding
		}{
			{"a NaN component", model.User{ID: "U2", Name: "Lin"}, model.Embedding{math.NaN(), 0, 0}},
			{"an infinite component", model.User{ID: "U2", Name: "Lin"}, model.Embedding{0, math.Inf(-1), 0}},
			{"a different dimension", model.User{ID: "U2", Name: "Lin"}, model.Embedding{1, 2}},
			{"an empty embedding", model.User{ID: "U2", Name: "Lin"}, model.Embedding{}},
			{"no name", model.User{ID: "U2"}, model.Embedding{1, 2, 3}},
			{"a NaN re-enrollment", model.User{ID: "U1", Name: "Ada"}, model.Embedding{math.NaN(), 2, 3}},
		}
		for _, tc := range cases {
			convey.Convey("When saving a user with "+tc.name, func() {
				err := fs.SaveUser(ctx, tc.user, tc.emb)

				convey.Convey("Then the write is refused as malformed", func() {
					convey.So(errors.Is(err, storage.ErrMalformed), convey.ShouldBeTrue)
				})

				convey.Convey("Then the directory still opens with the earlier state", func() {
					reopened, err := storage.OpenFileStore(ctx, dir)
					convey.So(err, convey.ShouldBeNil)
					snap, err := reopened.Load(ctx)
					convey.So(err, convey.ShouldBeNil)
					convey.So(len(snap.Enrolled), convey.ShouldEqual, 1)
					convey.So(snap.Enrolled[0].Embedding, convey.ShouldResemble, model.Embedding{1, 2, 3})
					convey.So(snap.Enrolled[0].User.Department, convey.ShouldEqual, "R&D")
				})
			})
		}

		convey.Convey("When a valid second user is saved", func() {
			convey.So(fs.SaveUser(ctx, model.User{ID: "U2", Name: "Lin", RegisteredAt: registered},
				model.Embedding{4, 5, 6}), convey.ShouldBeNil)

			convey.Convey("Then reopening loads both", func() {
				reopened, err := storage.OpenFileStore(ctx, dir)
				convey.So(err, convey.ShouldBeNil)
				snap, _ := reopened.Load(ctx)
				convey.So(len(snap.Enrolled), convey.ShouldEqual, 2)
				convey.So(snap.Enrolled[1].User.Department, convey.ShouldBeEmpty)
			})
		})
	})
}

func TestMemory(t *testing.T) {
	convey.Convey("Given a memory persister", t, func() {
		ctx := context.Background()
		m := storage.NewMemory()

		convey.So(m.SaveUser(ctx, model.User{ID: "U1", Name: "Ada"}, model.Embedding{1}), convey.ShouldBeNil)
		convey.So(m.SaveUser(ctx, model.User{ID: "U2", Name: "Lin"}, model.Embedding{2}), convey.ShouldBeNil)
		convey.So(m.SaveUser(ctx, model.User{ID: "U1", Name: "Ada"}, model.Embedding{3}), convey.ShouldBeNil)
		convey.So(m.AppendRecord(ctx, model.AttendanceRecord{ID: "r1", UserID: "U1"}), convey.ShouldBeNil)

		snap, err := m.Load(ctx)

		convey.So(err, convey.ShouldBeNil)
		convey.So(len(snap.Enrolled), convey.ShouldEqual, 2)
		convey.So(snap.Enrolled[0].Embedding, convey.ShouldResemble, model.Embedding{3})
		convey.So(len(snap.Records), convey.ShouldEqual, 1)

		convey.Convey("When an embedding is not finite", func() {
			err := m.SaveUser(ctx, model.User{ID: "U3", Name: "Kim"}, model.Embedding{math.Inf(1)})

			convey.Convey("Then it is refused and nothing changes", func() {
				convey.So(errors.Is(err, storage.ErrMalformed), convey.ShouldBeTrue)
				snap, _ := m.Load(ctx)
				convey.So(len(snap.Enrolled), convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			convey.Convey("Then writes are refused", func() {
				convey.So(errors.Is(m.AppendRecord(cctx, model.AttendanceRecord{}), context.Canceled), convey.ShouldBeTrue)
			})
		})
	})
}
