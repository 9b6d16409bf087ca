package e2e_test

import (
	"context"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/marketmind-ai/marketmind/citest/testutil"
	"github.com/marketmind-ai/marketmind/internal/chat"
	"github.com/marketmind-ai/marketmind/internal/event"
	"github.com/marketmind-ai/marketmind/internal/history"
	"github.com/marketmind-ai/marketmind/internal/storage"
	"github.com/marketmind-ai/marketmind/internal/transport"
	"github.com/marketmind-ai/marketmind/pkg/types"
)

var _ = Describe("Conversation Workflows", func() {
	var (
		backend    *testutil.Backend
		bus        *event.Bus
		controller *chat.Controller
		ctx        context.Context
	)

	BeforeEach(func() {
		backend = testutil.NewBackend()
		bus = event.NewBus()
		controller = chat.NewController(chat.Options{
			Streamer:    transport.NewClient(backend.ChatURL()),
			History:     history.NewClient(backend.HistoryURL()),
			Bus:         bus,
			Endpoint:    "crypto",
			UserID:      "e2e-user",
			NoticeDelay: 300 * time.Millisecond,
		})
		ctx = context.Background()
	})

	AfterEach(func() {
		bus.Close()
		backend.Close()
	})

	Describe("Streaming a full answer", func() {
		BeforeEach(func() {
			backend.Script("What is the price of BTC?", testutil.Scenario{
				Events: []types.StreamEvent{
					{Type: types.EventThinking},
					{Type: types.EventThought, Step: 1, Name: "Fetch price", Status: types.ThoughtInProgress},
					{Type: types.EventThought, Step: 1, Name: "Fetch price", Status: types.ThoughtComplete},
					{Type: types.EventToken, Content: "$"},
					{Type: types.EventToken, Content: "97,000"},
					{Type: types.EventChart, Data: `{"symbol":"BTC"}`},
					{Type: types.EventDone},
				},
			})
		})

		It("assembles the assistant message incrementally", func() {
			err := controller.Send(ctx, "What is the price of BTC?", chat.SendOptions{})
			Expect(err).NotTo(HaveOccurred())

			msgs := controller.Messages()
			Expect(msgs).To(HaveLen(2))

			Expect(msgs[0].Role).To(Equal(types.RoleUser))
			Expect(msgs[0].Content).To(Equal("What is the price of BTC?"))

			Expect(msgs[1].Role).To(Equal(types.RoleAssistant))
			Expect(msgs[1].Content).To(Equal("$97,000"))
			Expect(msgs[1].IsThinking).To(BeFalse())
			Expect(msgs[1].ChartData).To(Equal(`{"symbol":"BTC"}`))
			Expect(msgs[1].ThoughtProcess).To(HaveLen(1))
			Expect(msgs[1].ThoughtProcess[0].Status).To(Equal(types.ThoughtComplete))
		})

		It("adopts the backend-assigned session id and reuses it", func() {
			Expect(controller.SessionID()).To(BeZero())

			err := controller.Send(ctx, "What is the price of BTC?", chat.SendOptions{})
			Expect(err).NotTo(HaveOccurred())

			assigned := controller.SessionID()
			Expect(assigned).NotTo(BeZero())

			err = controller.Send(ctx, "What is the price of BTC?", chat.SendOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(controller.SessionID()).To(Equal(assigned))

			reqs := backend.Requests()
			Expect(reqs).To(HaveLen(2))
			Expect(reqs[0].SessionID).To(BeZero())
			Expect(reqs[1].SessionID).To(Equal(assigned))
		})

		It("records the session in the cache via the bus", func() {
			tempDir, err := testutil.NewTempDir()
			Expect(err).NotTo(HaveOccurred())
			defer tempDir.Cleanup()

			store := storage.New(tempDir.Path)
			cache := storage.NewSessionCache(store)
			detach := cache.Attach(bus)
			defer detach()

			err = controller.Send(ctx, "What is the price of BTC?", chat.SendOptions{})
			Expect(err).NotTo(HaveOccurred())

			Eventually(func() int {
				sessions, _ := cache.List()
				return len(sessions)
			}).Should(Equal(1))

			sessions, err := cache.List()
			Expect(err).NotTo(HaveOccurred())
			Expect(sessions[0].ID).To(Equal(controller.SessionID()))
			Expect(sessions[0].Title).To(Equal("What is the price of BTC?"))
			Expect(sessions[0].Endpoint).To(Equal("crypto"))
		})
	})

	Describe("Aborting a turn", func() {
		var hold chan struct{}

		BeforeEach(func() {
			hold = make(chan struct{})
			backend.Script("stream forever", testutil.Scenario{
				Hold: hold,
				Events: []types.StreamEvent{
					{Type: types.EventToken, Content: "partial"},
					{Type: types.EventToken, Content: " answer"},
					{Type: types.EventDone},
				},
			})
		})

		AfterEach(func() {
			select {
			case <-hold:
			default:
				close(hold)
			}
		})

		It("keeps partial content and clears the stop notice", func() {
			got := make(chan struct{})
			controller.OnUpdate = func(msgs []types.Message) {
				if len(msgs) == 2 && msgs[1].Content == "partial" {
					select {
					case <-got:
					default:
						close(got)
					}
				}
			}

			done := make(chan error, 1)
			go func() {
				done <- controller.Send(ctx, "stream forever", chat.SendOptions{})
			}()

			Eventually(got).Should(BeClosed())
			controller.Stop()

			Eventually(done).Should(Receive(BeNil()))

			msgs := controller.Messages()
			Expect(msgs).To(HaveLen(2))
			Expect(msgs[1].Content).To(Equal("partial"))
			Expect(msgs[1].IsThinking).To(BeFalse())

			Expect(controller.LastError()).To(Equal(chat.NoticeGenerationStopped))
			Eventually(controller.LastError).Should(BeEmpty())
		})
	})

	Describe("Server failures", func() {
		It("rolls the optimistic messages back on an error event", func() {
			backend.Script("break please", testutil.Scenario{
				Events: []types.StreamEvent{
					{Type: types.EventToken, Content: "starting"},
					{Type: types.EventError, Message: "query planner exploded"},
				},
			})

			err := controller.Send(ctx, "break please", chat.SendOptions{})
			Expect(err).To(HaveOccurred())

			Expect(controller.Messages()).To(BeEmpty())
			Expect(controller.LastError()).To(Equal("query planner exploded"))
			Expect(controller.Loading()).To(BeFalse())
		})

		It("rolls back on a non-200 response", func() {
			backend.Script("unavailable", testutil.Scenario{Status: http.StatusServiceUnavailable})

			err := controller.Send(ctx, "unavailable", chat.SendOptions{})
			Expect(err).To(HaveOccurred())
			Expect(controller.Messages()).To(BeEmpty())
			Expect(controller.LastError()).To(ContainSubstring("503"))
		})
	})

	Describe("Loading history", func() {
		It("replays a persisted session", func() {
			backend.Seed(42, []types.HistoryMessage{
				{Role: types.RoleUser, Content: "What moved ETH today?", Timestamp: 1},
				{Role: types.RoleAssistant, Content: "ETF inflows.", Timestamp: 2},
			})

			err := controller.LoadHistory(ctx, 42)
			Expect(err).NotTo(HaveOccurred())

			msgs := controller.Messages()
			Expect(msgs).To(HaveLen(2))
			Expect(msgs[0].Content).To(Equal("What moved ETH today?"))
			Expect(msgs[1].Content).To(Equal("ETF inflows."))
			Expect(controller.SessionID()).To(Equal(int64(42)))
		})

		It("leaves the transcript untouched when the session is missing", func() {
			err := controller.LoadHistory(ctx, 9999)
			Expect(err).To(HaveOccurred())
			Expect(controller.Messages()).To(BeEmpty())
			Expect(controller.LastError()).To(Equal("Failed to load conversation history."))
		})

		It("resumes a conversation loaded from history", func() {
			backend.Seed(42, []types.HistoryMessage{
				{Role: types.RoleUser, Content: "hi", Timestamp: 1},
				{Role: types.RoleAssistant, Content: "hello", Timestamp: 2},
			})
			backend.Script("and BTC?", testutil.Scenario{
				Events: []types.StreamEvent{
					{Type: types.EventToken, Content: "up 3%"},
					{Type: types.EventDone},
				},
			})

			Expect(controller.LoadHistory(ctx, 42)).To(Succeed())
			Expect(controller.Send(ctx, "and BTC?", chat.SendOptions{})).To(Succeed())

			msgs := controller.Messages()
			Expect(msgs).To(HaveLen(4))
			Expect(msgs[3].Content).To(Equal("up 3%"))

			reqs := backend.Requests()
			Expect(reqs[len(reqs)-1].SessionID).To(Equal(int64(42)))
		})
	})
})
