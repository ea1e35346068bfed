package postgres

import (
	"context"
	"testing"

	"github.com/frahmantamala/inspection-workflow/internal/core/database"
	locationDatamodel "github.com/frahmantamala/inspection-workflow/internal/core/datamodel/location"
	"github.com/frahmantamala/inspection-workflow/internal/location"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

func TestLocationRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "LocationRepository Suite")
}

var _ = Describe("LocationRepository", func() {
	var (
		db   *gorm.DB
		repo location.RepositoryAPI
		ctx  context.Context
	)

	BeforeEach(func() {
		var err error
		db, err = database.OpenInMemory()
		Expect(err).NotTo(HaveOccurred())
		repo = NewLocationRepository(db)
		ctx = context.Background()
	})

	AfterEach(func() {
		Expect(database.Close(db)).To(Succeed())
	})

	It("returns nil for a missing name or id", func() {
		byName, err := repo.GetByName(ctx, "nowhere")
		Expect(err).NotTo(HaveOccurred())
		Expect(byName).To(BeNil())

		byID, err := repo.GetByID(ctx, 42)
		Expect(err).NotTo(HaveOccurred())
		Expect(byID).To(BeNil())
	})

	It("matches names case-insensitively", func() {
		Expect(repo.Create(ctx, &locationDatamodel.Location{Name: "Plant A", IsActive: true})).To(Succeed())

		found, err := repo.GetByName(ctx, "PLANT a")
		Expect(err).NotTo(HaveOccurred())
		Expect(found).NotTo(BeNil())
		Expect(found.Name).To(Equal("Plant A"))
	})

	It("keeps deactivated rows out of the active listing and count", func() {
		a := &locationDatamodel.Location{Name: "Alpha", IsActive: true}
		b := &locationDatamodel.Location{Name: "Bravo", IsActive: true}
		Expect(repo.Create(ctx, a)).To(Succeed())
		Expect(repo.Create(ctx, b)).To(Succeed())

		Expect(repo.Deactivate(ctx, a.ID)).To(Succeed())

		active, err := repo.GetAll(ctx, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(active).To(HaveLen(1))
		Expect(active[0].Name).To(Equal("Bravo"))

		all, err := repo.GetAll(ctx, true)
		Expect(err).NotTo(HaveOccurred())
		Expect(all).To(HaveLen(2))

		n, err := repo.CountActive(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(int64(1)))
	})

	It("reactivates through Update", func() {
		a := &locationDatamodel.Location{Name: "Alpha", IsActive: true}
		Expect(repo.Create(ctx, a)).To(Succeed())
		Expect(repo.Deactivate(ctx, a.ID)).To(Succeed())

		a.IsActive = true
		a.Description = "back"
		Expect(repo.Update(ctx, a)).To(Succeed())

		got, err := repo.GetByID(ctx, a.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.IsActive).To(BeTrue())
		Expect(got.Description).To(Equal("back"))
	})
})
