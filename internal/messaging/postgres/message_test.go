package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/frahmantamala/inspection-workflow/internal/auth"
	"github.com/frahmantamala/inspection-workflow/internal/core/database"
	inspectionDatamodel "github.com/frahmantamala/inspection-workflow/internal/core/datamodel/inspection"
	messageDatamodel "github.com/frahmantamala/inspection-workflow/internal/core/datamodel/message"
	userDatamodel "github.com/frahmantamala/inspection-workflow/internal/core/datamodel/user"
	"github.com/frahmantamala/inspection-workflow/internal/messaging"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

func TestMessageRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "MessageRepository Suite")
}

var _ = Describe("MessageRepository", func() {
	var (
		db              *gorm.DB
		repo            messaging.Repository
		ctx             context.Context
		ann, bob, carol *userDatamodel.User
		insp            *inspectionDatamodel.Inspection
		clock           time.Time
	)

	newUser := func(username, staffID, role string) *userDatamodel.User {
		u := &userDatamodel.User{
			Username: username, StaffID: staffID, Email: username + "@example.com",
			FullName: username, PasswordHash: "x", Role: role, IsActive: true,
		}
		Expect(db.Create(u).Error).To(Succeed())
		return u
	}

	send := func(from, to int64, inspectionID *int64, content string) *messageDatamodel.Message {
		clock = clock.Add(time.Minute)
		row := &messageDatamodel.Message{
			ThreadID:     messaging.ThreadID(from, to, inspectionID),
			InspectionID: inspectionID,
			SenderID:     from,
			ReceiverID:   to,
			Content:      content,
			Status:       messaging.StatusUnread,
			CreatedAt:    clock,
		}
		Expect(repo.Create(ctx, row)).To(Succeed())
		return row
	}

	BeforeEach(func() {
		var err error
		db, err = database.OpenInMemory()
		Expect(err).NotTo(HaveOccurred())
		repo = NewMessageRepository(db)
		ctx = context.Background()
		clock = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

		ann = newUser("ann", "S001", auth.RoleManager)
		bob = newUser("bob", "S002", auth.RoleInspector)
		carol = newUser("carol", "S003", auth.RoleInspector)
		insp = &inspectionDatamodel.Inspection{
			Title: "Boiler check", Location: "Plant A", Status: "scheduled",
			ScheduledDate: clock, InspectorID: bob.ID, AssignedBy: ann.ID, Version: 1,
		}
		Expect(db.Create(insp).Error).To(Succeed())
	})

	AfterEach(func() {
		Expect(database.Close(db)).To(Succeed())
	})

	It("returns nil for a missing message", func() {
		got, err := repo.GetByID(ctx, 999)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(BeNil())
	})

	It("summarises threads with first, last and unread counts", func() {
		// Given
		first := send(ann.ID, bob.ID, nil, "hello")
		subject := "Weekly plan"
		Expect(db.Model(first).Update("subject", subject).Error).To(Succeed())
		send(bob.ID, ann.ID, nil, "hi back")
		last := send(ann.ID, bob.ID, nil, "see you")
		scoped := send(bob.ID, ann.ID, &insp.ID, "about the boiler")
		send(carol.ID, bob.ID, nil, "not for ann")

		// When
		threads, err := repo.Threads(ctx, ann.ID)

		// Then
		Expect(err).NotTo(HaveOccurred())
		Expect(threads).To(HaveLen(2))

		Expect(threads[0].ThreadID).To(Equal(scoped.ThreadID))
		Expect(threads[0].MessageCount).To(Equal(int64(1)))
		Expect(threads[0].UnreadCount).To(Equal(int64(1)))

		general := threads[1]
		Expect(general.ThreadID).To(Equal(messaging.ThreadID(ann.ID, bob.ID, nil)))
		Expect(general.MessageCount).To(Equal(int64(3)))
		Expect(general.UnreadCount).To(Equal(int64(1)))
		Expect(general.First.ID).To(Equal(first.ID))
		Expect(*general.First.Subject).To(Equal(subject))
		Expect(general.Last.ID).To(Equal(last.ID))
	})

	It("only returns a thread to its participants", func() {
		send(ann.ID, bob.ID, nil, "hello")
		threadID := messaging.ThreadID(ann.ID, bob.ID, nil)

		rows, err := repo.ThreadMessages(ctx, threadID, carol.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(BeEmpty())

		rows, err = repo.ThreadMessages(ctx, threadID, bob.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(1))
	})

	It("marks only unread messages addressed to the reader", func() {
		// Given
		send(ann.ID, bob.ID, nil, "one")
		send(ann.ID, bob.ID, nil, "two")
		send(bob.ID, ann.ID, nil, "three")
		threadID := messaging.ThreadID(ann.ID, bob.ID, nil)
		at := clock.Add(time.Hour)

		// When
		n, err := repo.MarkThreadRead(ctx, threadID, bob.ID, at)

		// Then
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(int64(2)))

		unread, err := repo.CountUnread(ctx, bob.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(unread).To(BeZero())
		unread, err = repo.CountUnread(ctx, ann.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(unread).To(Equal(int64(1)))

		again, err := repo.MarkThreadRead(ctx, threadID, bob.ID, at)
		Expect(err).NotTo(HaveOccurred())
		Expect(again).To(BeZero())
	})

	It("marks a single message read once", func() {
		msg := send(ann.ID, bob.ID, nil, "one")

		n, err := repo.MarkRead(ctx, msg.ID, clock)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(int64(1)))

		n, err = repo.MarkRead(ctx, msg.ID, clock)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(BeZero())

		got, err := repo.GetByID(ctx, msg.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Status).To(Equal(messaging.StatusRead))
		Expect(got.ReadAt).NotTo(BeNil())
	})

	It("lists inspection and personal messages newest first", func() {
		older := send(ann.ID, bob.ID, &insp.ID, "first")
		newer := send(bob.ID, ann.ID, &insp.ID, "second")
		send(carol.ID, bob.ID, &insp.ID, "carol only")
		general := send(ann.ID, carol.ID, nil, "general")

		rows, err := repo.ListForInspection(ctx, insp.ID, ann.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(2))
		Expect(rows[0].ID).To(Equal(newer.ID))
		Expect(rows[1].ID).To(Equal(older.ID))

		rows, err = repo.ListForUser(ctx, ann.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(3))
		Expect(rows[0].ID).To(Equal(general.ID))
	})

	It("resolves users and inspection titles", func() {
		users, err := repo.Users(ctx, []int64{ann.ID, bob.ID, 999})
		Expect(err).NotTo(HaveOccurred())
		Expect(users).To(HaveLen(2))
		Expect(users[bob.ID].FullName).To(Equal("bob"))

		titles, err := repo.InspectionTitles(ctx, []int64{insp.ID, 999})
		Expect(err).NotTo(HaveOccurred())
		Expect(titles).To(Equal(map[int64]string{insp.ID: "Boiler check"}))
	})
})
