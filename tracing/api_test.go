package tracing

import (
	"github.com/sarchlab/linecache/sim"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = Describe("Api", func() {
	var (
		mockCtrl *gomock.Controller
		domain   *MockNamedHookable
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		domain = NewMockNamedHookable(mockCtrl)
		domain.EXPECT().NumHooks().Return(1).AnyTimes()
		domain.EXPECT().InvokeHook(gomock.Any()).AnyTimes()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	DescribeTable("rejecting malformed tasks",
		func(id, name, kind, what string) {
			domain.EXPECT().Name().Return(name).AnyTimes()
			Expect(func() {
				StartTask(id, "parent", domain, kind, what, nil)
			}).To(Panic())
		},
		Entry("empty id", "", "Cache", "req_in", "read"),
		Entry("unnamed domain", "1", "", "req_in", "read"),
		Entry("empty kind", "1", "Cache", "", "read"),
		Entry("empty what", "1", "Cache", "req_in", ""),
	)

	It("should reject a nil domain", func() {
		Expect(func() {
			StartTask("1", "", nil, "req_in", "read", nil)
		}).To(Panic())
	})

	It("should not invoke hooks when there are none", func() {
		quiet := NewMockNamedHookable(mockCtrl)
		quiet.EXPECT().NumHooks().Return(0).AnyTimes()

		StartTask("id", "", quiet, "kind", "what", nil)
		AddTaskStep("id", quiet, "step")
		EndTask("id", quiet)
	})

	It("should report start, step and end", func() {
		hooked := NewMockNamedHookable(mockCtrl)
		hooked.EXPECT().NumHooks().Return(1).AnyTimes()
		hooked.EXPECT().Name().Return("Cache").AnyTimes()

		var positions []string
		hooked.EXPECT().InvokeHook(gomock.Any()).
			Do(func(ctx sim.HookCtx) {
				positions = append(positions, ctx.Pos.Name)
				task := ctx.Item.(Task)
				Expect(task.ID).To(Equal("t1"))
			}).Times(3)

		StartTask("t1", "", hooked, "req_in", "read", nil)
		AddTaskStep("t1", hooked, "read-hit")
		EndTask("t1", hooked)

		Expect(positions).To(Equal([]string{
			HookPosTaskStart.Name, HookPosTaskStep.Name, HookPosTaskEnd.Name,
		}))
	})
})
