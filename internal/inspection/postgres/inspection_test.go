package postgres

import (
	"context"
	stdErrors "errors"
	"testing"
	"time"

	"github.com/frahmantamala/inspection-workflow/internal/auth"
	"github.com/frahmantamala/inspection-workflow/internal/core/database"
	inspectionDatamodel "github.com/frahmantamala/inspection-workflow/internal/core/datamodel/inspection"
	messageDatamodel "github.com/frahmantamala/inspection-workflow/internal/core/datamodel/message"
	reminderDatamodel "github.com/frahmantamala/inspection-workflow/internal/core/datamodel/reminder"
	userDatamodel "github.com/frahmantamala/inspection-workflow/internal/core/datamodel/user"
	"github.com/frahmantamala/inspection-workflow/internal/inspection"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

func TestInspectionRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "InspectionRepository Suite")
}

var _ = Describe("InspectionRepository", func() {
	var (
		db         *gorm.DB
		repo       inspection.Repository
		ctx        context.Context
		ivy, oscar *userDatamodel.User
		manager    *userDatamodel.User
	)

	newUser := func(username, staffID, role string) *userDatamodel.User {
		u := &userDatamodel.User{
			Username: username, StaffID: staffID, Email: username + "@example.com",
			FullName: username, PasswordHash: "x", Role: role, IsActive: true,
		}
		Expect(db.Create(u).Error).To(Succeed())
		return u
	}

	newInspection := func(inspectorID int64, status string, scheduled time.Time) *inspectionDatamodel.Inspection {
		row := &inspectionDatamodel.Inspection{
			Title: "check", Location: "Plant A", Status: status, ScheduledDate: scheduled,
			InspectorID: inspectorID, AssignedBy: manager.ID, Version: 1,
		}
		Expect(repo.Create(ctx, row)).To(Succeed())
		return row
	}

	BeforeEach(func() {
		var err error
		db, err = database.OpenInMemory()
		Expect(err).NotTo(HaveOccurred())
		repo = NewInspectionRepository(db)
		ctx = context.Background()

		ivy = newUser("ivy", "S001", auth.RoleInspector)
		oscar = newUser("oscar", "S002", auth.RoleInspector)
		manager = newUser("mia", "S003", auth.RoleManager)
	})

	AfterEach(func() {
		Expect(database.Close(db)).To(Succeed())
	})

	It("scopes reads to the inspector", func() {
		// Given
		now := time.Now()
		mine := newInspection(ivy.ID, inspection.StatusScheduled, now)
		theirs := newInspection(oscar.ID, inspection.StatusScheduled, now)

		// When
		got, err := repo.GetByID(ctx, theirs.ID, inspection.InspectorScope(ivy.ID))

		// Then
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(BeNil())

		got, err = repo.GetByID(ctx, mine.ID, inspection.InspectorScope(ivy.ID))
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ID).To(Equal(mine.ID))

		list, err := repo.List(ctx, inspection.ListQuery{Scope: inspection.InspectorScope(ivy.ID)})
		Expect(err).NotTo(HaveOccurred())
		Expect(list).To(HaveLen(1))

		list, err = repo.List(ctx, inspection.ListQuery{Scope: inspection.SystemScope()})
		Expect(err).NotTo(HaveOccurred())
		Expect(list).To(HaveLen(2))
	})

	It("filters by status and scheduled range in order", func() {
		march := time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local)
		april := time.Date(2026, 4, 2, 0, 0, 0, 0, time.Local)
		a := newInspection(ivy.ID, inspection.StatusScheduled, march)
		b := newInspection(ivy.ID, inspection.StatusScheduled, march.AddDate(0, 0, 5))
		newInspection(ivy.ID, inspection.StatusScheduled, april)
		newInspection(ivy.ID, inspection.StatusCompleted, march)

		from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.Local)
		to := from.AddDate(0, 1, 0)
		list, err := repo.List(ctx, inspection.ListQuery{
			Scope:     inspection.SystemScope(),
			Statuses:  []string{inspection.StatusScheduled},
			Scheduled: inspection.Window{From: &from, To: &to},
			Order:     inspection.OrderScheduledDesc,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(list).To(HaveLen(2))
		Expect(list[0].ID).To(Equal(b.ID))
		Expect(list[1].ID).To(Equal(a.ID))

		open, err := repo.List(ctx, inspection.ListQuery{
			Scope:           inspection.SystemScope(),
			ExcludeStatuses: []string{inspection.StatusCompleted},
			Limit:           2,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(open).To(HaveLen(2))
	})

	It("applies a transition only against the expected status and version", func() {
		row := newInspection(ivy.ID, inspection.StatusScheduled, time.Now())

		// When the first writer moves the row on
		first := *row
		first.Status = inspection.StatusPendingReview
		Expect(repo.SaveTransition(ctx, &first, inspection.StatusScheduled)).To(Succeed())
		Expect(first.Version).To(Equal(int64(2)))

		// Then a second writer holding the old version loses
		second := *row
		second.Status = inspection.StatusPendingReview
		err := repo.SaveTransition(ctx, &second, inspection.StatusScheduled)
		Expect(stdErrors.Is(err, inspection.ErrStaleInspection)).To(BeTrue())

		// And rejecting with the fresh version bumps the counter once
		third := first
		third.Status = inspection.StatusRejected
		third.RejectionCount = 1
		now := time.Now()
		third.LastRejectedAt = &now
		Expect(repo.SaveTransition(ctx, &third, inspection.StatusPendingReview)).To(Succeed())

		got, err := repo.GetByID(ctx, row.ID, inspection.SystemScope())
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Status).To(Equal(inspection.StatusRejected))
		Expect(got.RejectionCount).To(Equal(1))
		Expect(got.Version).To(Equal(int64(3)))
		Expect(got.LastRejectedAt).NotTo(BeNil())
	})

	It("counts a window by the right date column", func() {
		start := time.Now().Add(-time.Hour)
		old := time.Now().AddDate(0, 0, -30)

		newInspection(ivy.ID, inspection.StatusScheduled, time.Now())
		newInspection(ivy.ID, inspection.StatusScheduled, old)
		pending := newInspection(ivy.ID, inspection.StatusPendingReview, old)
		done := newInspection(oscar.ID, inspection.StatusCompleted, old)
		completed := time.Now()
		Expect(db.Model(done).Update("completion_date", completed).Error).To(Succeed())
		_ = pending

		all, err := repo.CountWindow(ctx, inspection.SystemScope(), inspection.Window{From: &start})
		Expect(err).NotTo(HaveOccurred())
		Expect(all.Total).To(Equal(int64(4)))
		Expect(all.Scheduled).To(Equal(int64(1)))
		Expect(all.PendingReview).To(Equal(int64(1)))
		Expect(all.Completed).To(Equal(int64(1)))

		mine, err := repo.CountWindow(ctx, inspection.InspectorScope(ivy.ID), inspection.Window{From: &start})
		Expect(err).NotTo(HaveOccurred())
		Expect(mine.Total).To(Equal(int64(3)))
		Expect(mine.Completed).To(Equal(int64(0)))

		previous, err := repo.CountWindow(ctx, inspection.SystemScope(), inspection.Window{To: &start})
		Expect(err).NotTo(HaveOccurred())
		Expect(previous.Total).To(Equal(int64(0)))
		Expect(previous.Scheduled).To(Equal(int64(1)))
	})

	It("groups counts by status", func() {
		newInspection(ivy.ID, inspection.StatusCompleted, time.Now())
		newInspection(ivy.ID, inspection.StatusCompleted, time.Now())
		newInspection(ivy.ID, inspection.StatusRejected, time.Now())
		newInspection(oscar.ID, inspection.StatusRejected, time.Now())

		counts, err := repo.CountByStatus(ctx, inspection.InspectorScope(ivy.ID))
		Expect(err).NotTo(HaveOccurred())
		Expect(counts).To(Equal(map[string]int64{
			inspection.StatusCompleted: 2,
			inspection.StatusRejected:  1,
		}))
	})

	It("looks up inspectors and their names", func() {
		got, err := repo.GetInspector(ctx, ivy.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Username).To(Equal("ivy"))

		got, err = repo.GetInspector(ctx, manager.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(BeNil())

		names, err := repo.InspectorNames(ctx, []int64{ivy.ID, oscar.ID})
		Expect(err).NotTo(HaveOccurred())
		Expect(names).To(Equal(map[int64]string{ivy.ID: "ivy", oscar.ID: "oscar"}))
	})

	It("clears inspections with their reminders and messages but keeps direct messages", func() {
		row := newInspection(ivy.ID, inspection.StatusScheduled, time.Now())
		Expect(db.Create(&reminderDatamodel.Reminder{InspectionID: row.ID, UserID: ivy.ID, Title: "t", RemindAt: time.Now(), Status: "pending"}).Error).To(Succeed())
		Expect(db.Create(&messageDatamodel.Message{ThreadID: "x", InspectionID: &row.ID, SenderID: ivy.ID, ReceiverID: manager.ID, Content: "a", Status: "unread", CreatedAt: time.Now()}).Error).To(Succeed())
		Expect(db.Create(&messageDatamodel.Message{ThreadID: "y", SenderID: ivy.ID, ReceiverID: manager.ID, Content: "b", Status: "unread", CreatedAt: time.Now()}).Error).To(Succeed())

		res, err := repo.DeleteAll(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(Equal(inspection.ClearResult{Reminders: 1, Messages: 1, Inspections: 1}))

		var left int64
		Expect(db.Model(&messageDatamodel.Message{}).Count(&left).Error).To(Succeed())
		Expect(left).To(Equal(int64(1)))
	})
})
