package mem

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Storage", func() {
	var storage *Storage

	BeforeEach(func() {
		storage = NewStorageWithUnitSize(64*KB, 16)
	})

	It("should read zeros from untouched bytes", func() {
		data, err := storage.Read(0x100, 4)

		Expect(err).ToNot(HaveOccurred())
		Expect(data).To(Equal([]byte{0, 0, 0, 0}))
	})

	It("should read what was written across units", func() {
		data := []byte{1, 2, 3, 4, 5, 6, 7, 8}

		Expect(storage.Write(12, data)).To(Succeed())

		read, err := storage.Read(12, 8)
		Expect(err).ToNot(HaveOccurred())
		Expect(read).To(Equal(data))
	})

	It("should only write enabled bytes", func() {
		Expect(storage.Write(0, []byte{9, 9, 9, 9})).To(Succeed())

		err := storage.WriteMasked(0, []byte{1, 2, 3, 4},
			[]bool{true, false, false, true})
		Expect(err).ToNot(HaveOccurred())

		read, _ := storage.Read(0, 4)
		Expect(read).To(Equal([]byte{1, 9, 9, 4}))
	})

	It("should reject a mask of the wrong length", func() {
		err := storage.WriteMasked(0, []byte{1, 2}, []bool{true})

		Expect(err).To(HaveOccurred())
	})

	It("should reject accesses beyond capacity", func() {
		_, err := storage.Read(64*KB-2, 4)
		Expect(errors.Is(err, ErrAddressOutOfRange)).To(BeTrue())

		err = storage.Write(64*KB, []byte{1})
		Expect(errors.Is(err, ErrAddressOutOfRange)).To(BeTrue())
	})
})
