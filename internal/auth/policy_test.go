package auth

import (
	stdErrors "errors"

	errors "github.com/frahmantamala/inspection-workflow/internal"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = ginkgo.Describe("Policy", func() {
	manager := &Actor{ID: 1, Role: RoleManager}
	inspector := &Actor{ID: 7, Role: RoleInspector}
	other := &Actor{ID: 8, Role: RoleInspector}

	ginkgo.It("lets only managers through RequireManager", func() {
		gomega.Expect(RequireManager(manager)).To(gomega.Succeed())
		gomega.Expect(stdErrors.Is(RequireManager(inspector), errors.ErrForbiddenRole)).To(gomega.BeTrue())
		gomega.Expect(RequireManager(nil)).To(gomega.HaveOccurred())
	})

	ginkgo.It("separates a wrong role from a wrong assignee", func() {
		gomega.Expect(RequireAssignee(inspector, 7)).To(gomega.Succeed())
		gomega.Expect(stdErrors.Is(RequireAssignee(other, 7), errors.ErrNotAssignee)).To(gomega.BeTrue())
		gomega.Expect(stdErrors.Is(RequireAssignee(manager, 7), errors.ErrForbiddenRole)).To(gomega.BeTrue())
	})
})
