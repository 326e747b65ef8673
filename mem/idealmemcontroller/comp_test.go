package idealmemcontroller

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/linecache/mem"
	"github.com/sarchlab/linecache/sim"
)

var _ = Describe("Ideal Memory Controller", func() {
	var (
		mockCtrl   *gomock.Controller
		engine     *MockEngine
		topPort    *MockPort
		memCtrl    *Comp
		middleware *memMiddleware
		now        sim.VTimeInSec
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = NewMockEngine(mockCtrl)
		topPort = NewMockPort(mockCtrl)

		now = 10
		engine.EXPECT().CurrentTime().DoAndReturn(
			func() sim.VTimeInSec { return now }).AnyTimes()
		topPort.EXPECT().AsRemote().Return(sim.RemotePort("MemCtrl.TopPort")).
			AnyTimes()

		memCtrl = MakeBuilder().
			WithEngine(engine).
			WithNewStorage(1*mem.MB).
			WithLatency(10).
			WithRejectedRange(0x8000, 0x9000).
			Build("MemCtrl")
		memCtrl.topPort = topPort
		middleware = memCtrl.Middlewares()[0].(*memMiddleware)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	accept := func(req *mem.AccessReq) {
		topPort.EXPECT().RetrieveIncoming().Return(req)
		engine.EXPECT().Schedule(gomock.Any())

		madeProgress := middleware.Tick()

		Expect(madeProgress).To(BeTrue())
	}

	It("should implement the debug accessor", func() {
		var accessor mem.DebugAccessor = memCtrl

		Expect(accessor.Poke(0x100, []byte{1, 2, 3, 4})).To(Succeed())

		data, err := accessor.Peek(0x102, 2)

		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(Equal([]byte{3, 4}))
	})

	It("should not respond before the latency passes", func() {
		Expect(memCtrl.Poke(0x40, []byte{1, 2, 3, 4})).To(Succeed())
		req := mem.MakeAccessReqBuilder().
			WithSrc("Agent.MemPort").
			WithDst("MemCtrl.TopPort").
			WithAddress(0x40).
			WithByteSize(4).
			Build()

		accept(req)

		Expect(memCtrl.NumPendingResponses()).To(Equal(1))

		now = 10 + 5e-9
		topPort.EXPECT().RetrieveIncoming().Return(nil)

		madeProgress := middleware.Tick()

		Expect(madeProgress).To(BeFalse())
		Expect(memCtrl.NumPendingResponses()).To(Equal(1))
	})

	It("should respond to a read", func() {
		Expect(memCtrl.Poke(0x40, []byte{1, 2, 3, 4})).To(Succeed())
		req := mem.MakeAccessReqBuilder().
			WithSrc("Agent.MemPort").
			WithDst("MemCtrl.TopPort").
			WithAddress(0x40).
			WithByteSize(4).
			Build()

		accept(req)

		now = 11
		topPort.EXPECT().RetrieveIncoming().Return(nil)
		topPort.EXPECT().Send(gomock.Any()).
			Do(func(msg sim.Msg) {
				rsp := msg.(*mem.AccessRsp)
				Expect(rsp.RespondTo).To(Equal(req.ID))
				Expect(rsp.Dst).To(Equal(sim.RemotePort("Agent.MemPort")))
				Expect(rsp.Status).To(Equal(mem.StatusOK))
				Expect(rsp.Data).To(Equal([]byte{1, 2, 3, 4}))
				Expect(rsp.LastTransfer).To(BeTrue())
			}).
			Return(nil)

		madeProgress := middleware.Tick()

		Expect(madeProgress).To(BeTrue())
		Expect(memCtrl.NumPendingResponses()).To(Equal(0))
	})

	It("should keep the response if the port is busy", func() {
		req := mem.MakeAccessReqBuilder().
			WithSrc("Agent.MemPort").
			WithDst("MemCtrl.TopPort").
			WithAddress(0x40).
			WithByteSize(4).
			Build()

		accept(req)

		now = 11
		topPort.EXPECT().RetrieveIncoming().Return(nil)
		topPort.EXPECT().Send(gomock.Any()).Return(sim.NewSendError())

		madeProgress := middleware.Tick()

		Expect(madeProgress).To(BeFalse())
		Expect(memCtrl.NumPendingResponses()).To(Equal(1))
	})

	It("should apply a write with byte enables on arrival", func() {
		Expect(memCtrl.Poke(0x40, []byte{9, 9, 9, 9})).To(Succeed())
		req := mem.MakeAccessReqBuilder().
			WithSrc("Agent.MemPort").
			WithDst("MemCtrl.TopPort").
			WithKind(mem.KindWrite).
			WithAddress(0x40).
			WithByteSize(4).
			WithData([]byte{1, 2, 3, 4}).
			WithByteEnables([]bool{true, false, true, false}).
			Build()

		accept(req)

		data, _ := memCtrl.Peek(0x40, 4)
		Expect(data).To(Equal([]byte{1, 9, 3, 9}))
		Expect(memCtrl.pending[0].rsp.Data).To(BeNil())
	})

	It("should stream a wrapping block read from the critical beat", func() {
		for i := byte(0); i < 16; i++ {
			Expect(memCtrl.Poke(0x40+uint64(i), []byte{i})).To(Succeed())
		}

		req := mem.MakeAccessReqBuilder().
			WithSrc("Agent.MemPort").
			WithDst("MemCtrl.TopPort").
			WithKind(mem.KindBlockRead).
			WithAddress(0x48).
			WithByteSize(16).
			WithNumTransfers(4).
			WithWrap().
			Build()

		accept(req)

		Expect(memCtrl.pending).To(HaveLen(4))

		addresses := []uint64{0x48, 0x4c, 0x40, 0x44}
		for i, p := range memCtrl.pending {
			Expect(p.rsp.Address).To(Equal(addresses[i]))
			Expect(p.rsp.TransferIndex).To(Equal(i))
			Expect(p.rsp.LastTransfer).To(Equal(i == 3))

			offset := byte(addresses[i] - 0x40)
			Expect(p.rsp.Data).To(Equal(
				[]byte{offset, offset + 1, offset + 2, offset + 3}))

			if i > 0 {
				Expect(p.readyTime).To(
					BeNumerically(">", memCtrl.pending[i-1].readyTime))
			}
		}
	})

	It("should store a block write beat by beat", func() {
		data := make([]byte, 16)
		for i := range data {
			data[i] = byte(i + 1)
		}

		req := mem.MakeAccessReqBuilder().
			WithSrc("Agent.MemPort").
			WithDst("MemCtrl.TopPort").
			WithKind(mem.KindBlockWrite).
			WithAddress(0x80).
			WithByteSize(16).
			WithNumTransfers(4).
			WithData(data).
			Build()

		accept(req)

		stored, _ := memCtrl.Peek(0x80, 16)
		Expect(stored).To(Equal(data))
		Expect(memCtrl.pending).To(HaveLen(4))
	})

	It("should return the old value of an RCW", func() {
		Expect(memCtrl.Poke(0x40, []byte{1, 2, 3, 4})).To(Succeed())
		req := mem.MakeAccessReqBuilder().
			WithSrc("Agent.MemPort").
			WithDst("MemCtrl.TopPort").
			WithKind(mem.KindRCW).
			WithAddress(0x40).
			WithByteSize(4).
			WithData([]byte{5, 6, 7, 8}).
			WithByteEnables([]bool{true, true, false, false}).
			Build()

		accept(req)

		Expect(memCtrl.pending).To(HaveLen(1))
		Expect(memCtrl.pending[0].rsp.Data).To(Equal([]byte{1, 2, 3, 4}))
		Expect(memCtrl.pending[0].rsp.LastTransfer).To(BeTrue())

		stored, _ := memCtrl.Peek(0x40, 4)
		Expect(stored).To(Equal([]byte{5, 6, 3, 4}))
	})

	It("should answer ADDRESS_ERROR beyond the capacity", func() {
		req := mem.MakeAccessReqBuilder().
			WithSrc("Agent.MemPort").
			WithDst("MemCtrl.TopPort").
			WithAddress(1*mem.MB - 2).
			WithByteSize(4).
			Build()

		accept(req)

		rsp := memCtrl.pending[0].rsp
		Expect(rsp.Status).To(Equal(mem.StatusAddressError))
		Expect(rsp.Err).To(MatchError(mem.ErrAddressOutOfRange))
	})

	It("should answer REJECTED in the rejected range", func() {
		req := mem.MakeAccessReqBuilder().
			WithSrc("Agent.MemPort").
			WithDst("MemCtrl.TopPort").
			WithKind(mem.KindBlockWrite).
			WithAddress(0x8ff0).
			WithByteSize(16).
			WithNumTransfers(2).
			WithData(make([]byte, 16)).
			Build()

		accept(req)

		Expect(memCtrl.pending).To(HaveLen(2))
		for _, p := range memCtrl.pending {
			Expect(p.rsp.Status).To(Equal(mem.StatusRejected))
			Expect(p.rsp.Err).To(MatchError(ErrRejected))
		}
	})

	It("should answer PROTOCOL_ERROR for a write without data", func() {
		req := mem.MakeAccessReqBuilder().
			WithSrc("Agent.MemPort").
			WithDst("MemCtrl.TopPort").
			WithKind(mem.KindWrite).
			WithAddress(0x40).
			WithByteSize(4).
			Build()

		accept(req)

		Expect(memCtrl.pending[0].rsp.Status).
			To(Equal(mem.StatusProtocolError))
	})
})
