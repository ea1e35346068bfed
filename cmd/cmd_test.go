package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/frahmantamala/inspection-workflow/db/seed"
	"github.com/frahmantamala/inspection-workflow/internal/auth"
	"github.com/frahmantamala/inspection-workflow/internal/core/database"
	userDatamodel "github.com/frahmantamala/inspection-workflow/internal/core/datamodel/user"
	"github.com/frahmantamala/inspection-workflow/internal/core/events"
	reminderRedis "github.com/frahmantamala/inspection-workflow/internal/reminder/redis"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func TestCmd(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Cmd Suite")
}

var _ = Describe("Fixtures", func() {
	It("parses the built-in development fixtures", func() {
		fx, err := parseFixtures(seed.Fixtures)

		Expect(err).NotTo(HaveOccurred())
		Expect(fx.Users).NotTo(BeEmpty())
		Expect(fx.Locations).NotTo(BeEmpty())

		roles := map[string]bool{}
		for _, u := range fx.Users {
			roles[u.Role] = true
		}
		Expect(roles).To(HaveKey(auth.RoleManager))
		Expect(roles).To(HaveKey(auth.RoleInspector))
	})

	It("rejects an unknown role", func() {
		_, err := parseFixtures([]byte(`
users:
  - username: root
    staff_id: S009
    email: root@example.com
    password: secret1
    role: admin
`))

		Expect(err).To(MatchError(ContainSubstring(`invalid role "admin"`)))
	})

	It("rejects malformed yaml", func() {
		_, err := parseFixtures([]byte("users: [\n"))

		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("seedFixtures", func() {
	var (
		db  *gorm.DB
		ctx context.Context
	)

	BeforeEach(func() {
		var err error
		db, err = database.OpenInMemory()
		Expect(err).NotTo(HaveOccurred())
		ctx = context.Background()
	})

	AfterEach(func() {
		Expect(database.Close(db)).To(Succeed())
	})

	It("creates users with hashed passwords and skips them on a second run", func() {
		// Given
		fx, err := parseFixtures(seed.Fixtures)
		Expect(err).NotTo(HaveOccurred())

		// When
		first, err := seedFixtures(ctx, db, fx, bcrypt.MinCost)
		Expect(err).NotTo(HaveOccurred())
		second, err := seedFixtures(ctx, db, fx, bcrypt.MinCost)
		Expect(err).NotTo(HaveOccurred())

		// Then
		Expect(first.Users).To(Equal(len(fx.Users)))
		Expect(first.Locations).To(Equal(len(fx.Locations)))
		Expect(second).To(Equal(SeedResult{}))

		var manager userDatamodel.User
		Expect(db.Where("username = ?", "manager").First(&manager).Error).To(Succeed())
		Expect(manager.IsActive).To(BeTrue())
		Expect(bcrypt.CompareHashAndPassword([]byte(manager.PasswordHash), []byte("password123"))).To(Succeed())
	})

	It("clears inspection data and keeps users", func() {
		fx, err := parseFixtures(seed.Fixtures)
		Expect(err).NotTo(HaveOccurred())
		_, err = seedFixtures(ctx, db, fx, bcrypt.MinCost)
		Expect(err).NotTo(HaveOccurred())

		cleared, err := clearInspections(ctx, db)

		Expect(err).NotTo(HaveOccurred())
		Expect(cleared.Inspections).To(BeZero())
		var users int64
		Expect(db.Model(&userDatamodel.User{}).Count(&users).Error).To(Succeed())
		Expect(users).To(Equal(int64(len(fx.Users))))
	})
})

var _ = Describe("registerEventHandlers", func() {
	It("fans reminder.due out to the user's redis channel", func() {
		// Given
		mr := miniredis.RunT(GinkgoT())
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer client.Close()

		var logs bytes.Buffer
		lg := slog.New(slog.NewJSONHandler(&logs, nil))
		bus := events.NewEventBus(lg)
		registerEventHandlers(bus, lg, reminderRedis.NewNotifier(client))

		ctx := context.Background()
		sub := client.Subscribe(ctx, reminderRedis.Channel(7))
		defer sub.Close()
		_, err := sub.Receive(ctx)
		Expect(err).NotTo(HaveOccurred())

		// When
		Expect(bus.PublishSync(ctx, events.NewReminderDueEvent(3, 12, 7, "Boiler", "check pressure", time.Now()))).To(Succeed())
		bus.Close()

		// Then
		var msg *redis.Message
		Eventually(sub.Channel()).Should(Receive(&msg))
		var note reminderRedis.Notification
		Expect(json.Unmarshal([]byte(msg.Payload), &note)).To(Succeed())
		Expect(note.ReminderID).To(Equal(int64(3)))
		Expect(note.Title).To(Equal("Boiler"))
		Expect(logs.String()).To(ContainSubstring(`"event_type":"reminder.due"`))
	})

	It("only logs when redis is not configured", func() {
		lg := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		bus := events.NewEventBus(lg)
		registerEventHandlers(bus, lg, nil)

		err := bus.PublishSync(context.Background(), events.NewInspectionEvent(events.EventTypeInspectionApproved, 1, 2, 3, "completed", 0, ""))

		Expect(err).NotTo(HaveOccurred())
		bus.Close()
	})
})

var _ = Describe("flag overrides", func() {
	It("prefers a positive flag over config", func() {
		Expect(getIntFlag(0, 100)).To(Equal(100))
		Expect(getIntFlag(5, 100)).To(Equal(5))
		Expect(getDurationFlag(0, time.Minute)).To(Equal(time.Minute))
		Expect(getDurationFlag(time.Second, time.Minute)).To(Equal(time.Second))
	})
})
