package storage_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/frahmantamala/inspection-workflow/internal/storage"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/afero"
)

func TestStorage(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Storage Suite")
}

var _ = Describe("CleanKey", func() {
	It("accepts relative nested keys", func() {
		key, err := storage.CleanKey("reports/inspection_12_20240101_120000.pdf")
		Expect(err).NotTo(HaveOccurred())
		Expect(key).To(Equal("reports/inspection_12_20240101_120000.pdf"))
	})

	It("rejects traversal and absolute keys", func() {
		for _, bad := range []string{"", "../etc/passwd", "/abs/file", "a/../../b"} {
			_, err := storage.CleanKey(bad)
			Expect(err).To(HaveOccurred(), bad)
		}
	})
})

var _ = Describe("LocalStorage", func() {
	var (
		fs  afero.Fs
		s   *storage.LocalStorage
		ctx context.Context
	)

	BeforeEach(func() {
		fs = afero.NewMemMapFs()
		s = storage.NewFsStorage(fs)
		ctx = context.Background()
	})

	It("writes, reads back and deletes an object", func() {
		// Given
		ref, err := s.Put(ctx, "messages/3/photo.png", bytes.NewBufferString("png-bytes"), 9, "image/png")
		Expect(err).NotTo(HaveOccurred())

		// When
		rc, err := s.Open(ctx, ref)
		Expect(err).NotTo(HaveOccurred())
		data, err := io.ReadAll(rc)
		Expect(rc.Close()).To(Succeed())

		// Then
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("png-bytes"))
		Expect(s.Delete(ctx, ref)).To(Succeed())
		exists, _ := afero.Exists(fs, ref)
		Expect(exists).To(BeFalse())
	})

	It("reports a missing object", func() {
		_, err := s.Open(ctx, "reports/missing.pdf")
		Expect(err).To(MatchError(storage.ErrObjectNotFound))
	})

	It("treats deleting a missing object as success", func() {
		Expect(s.Delete(ctx, "reports/missing.pdf")).To(Succeed())
	})

	It("refuses to write outside its root", func() {
		_, err := s.Put(ctx, "../escape.txt", bytes.NewBufferString("x"), 1, "text/plain")
		Expect(err).To(HaveOccurred())
	})
})
