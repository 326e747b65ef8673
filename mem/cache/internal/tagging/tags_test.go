package tagging

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = Describe("Directory", func() {
	var (
		mockCtrl *gomock.Controller
		policy   *MockReplacementPolicy
		dir      Directory
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		policy = NewMockReplacementPolicy(mockCtrl)
		policy.EXPECT().Reset()

		dir = NewDirectory(4, 4, 16, policy)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should start with all the blocks invalid", func() {
		Expect(dir.Sets()).To(HaveLen(4))

		for i, set := range dir.Sets() {
			Expect(set.Blocks).To(HaveLen(4))

			for j, block := range set.Blocks {
				Expect(block.IsValid).To(BeFalse())
				Expect(block.SetID).To(Equal(i))
				Expect(block.WayID).To(Equal(j))
				Expect(block.CacheAddress).To(Equal(uint64(i*4+j) * 16))
			}
		}
	})

	It("should lookup", func() {
		block := dir.Sets()[1].Blocks[2]
		dir.SetTag(block, 0x10)
		dir.MarkValid(block)

		found, ok := dir.Lookup(0x10, 1)

		Expect(ok).To(BeTrue())
		Expect(found).To(BeIdenticalTo(block))
	})

	It("should not find invalid blocks", func() {
		block := dir.Sets()[1].Blocks[2]
		dir.SetTag(block, 0x10)

		_, ok := dir.Lookup(0x10, 1)

		Expect(ok).To(BeFalse())
	})

	It("should not find blocks in other sets", func() {
		block := dir.Sets()[1].Blocks[2]
		dir.SetTag(block, 0x10)
		dir.MarkValid(block)

		_, ok := dir.Lookup(0x10, 2)

		Expect(ok).To(BeFalse())
	})

	It("should panic if a tag is cached twice in a set", func() {
		for _, way := range []int{0, 3} {
			block := dir.Sets()[2].Blocks[way]
			dir.SetTag(block, 0x7)
			dir.MarkValid(block)
		}

		Expect(func() { dir.Lookup(0x7, 2) }).To(Panic())
	})

	It("should notify the policy once per visit", func() {
		block := dir.Sets()[3].Blocks[1]
		policy.EXPECT().OnHit(3, 1).Times(1)

		dir.Visit(block)
	})

	It("should prefer the lowest invalid way as victim", func() {
		dir.MarkValid(dir.Sets()[0].Blocks[0])
		dir.MarkValid(dir.Sets()[0].Blocks[2])

		victim, ok := dir.FindVictim(0)

		Expect(ok).To(BeTrue())
		Expect(victim.WayID).To(Equal(1))
	})

	It("should skip locked invalid ways", func() {
		dir.MarkValid(dir.Sets()[0].Blocks[0])
		dir.Sets()[0].Blocks[1].IsLocked = true

		victim, ok := dir.FindVictim(0)

		Expect(ok).To(BeTrue())
		Expect(victim.WayID).To(Equal(2))
	})

	It("should ask the policy when the set is full", func() {
		for _, block := range dir.Sets()[0].Blocks {
			dir.MarkValid(block)
		}
		policy.EXPECT().Victim(0).Return(3)

		victim, ok := dir.FindVictim(0)

		Expect(ok).To(BeTrue())
		Expect(victim.WayID).To(Equal(3))
	})

	It("should report a victim in use", func() {
		for _, block := range dir.Sets()[0].Blocks {
			dir.MarkValid(block)
		}
		dir.Sets()[0].Blocks[3].ReadCount = 1
		policy.EXPECT().Victim(0).Return(3)

		_, ok := dir.FindVictim(0)

		Expect(ok).To(BeFalse())
	})

	It("should notify the policy once per replacement", func() {
		policy.EXPECT().OnFill(2, 1).Times(1)

		dir.Replace(dir.Sets()[2].Blocks[1])
	})

	It("should invalidate", func() {
		block := dir.Sets()[2].Blocks[1]
		dir.MarkValid(block)
		dir.MarkDirty(block)
		policy.EXPECT().OnInvalidate(2, 1)

		dir.Invalidate(block)

		Expect(block.IsValid).To(BeFalse())
		Expect(block.IsDirty).To(BeFalse())
	})

	It("should not mark an invalid block dirty", func() {
		Expect(func() { dir.MarkDirty(dir.Sets()[0].Blocks[0]) }).To(Panic())
	})

	It("should reset", func() {
		block := dir.Sets()[2].Blocks[1]
		dir.MarkValid(block)
		policy.EXPECT().Reset()

		dir.Reset()

		Expect(dir.Sets()[2].Blocks[1].IsValid).To(BeFalse())
	})
})
