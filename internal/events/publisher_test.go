package events

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sebastiankruger/fruitsort-simulator/internal/controller"
	"github.com/sebastiankruger/fruitsort-simulator/internal/core"
)

type sentMsg struct {
	subject string
	data    []byte
}

type fakeConn struct {
	mu      sync.Mutex
	msgs    []sentMsg
	drained bool
}

func (c *fakeConn) Publish(subject string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, sentMsg{subject: subject, data: data})
	return nil
}

func (c *fakeConn) Drain() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drained = true
	return nil
}

func (c *fakeConn) messages() []sentMsg {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sentMsg(nil), c.msgs...)
}

func TestPublisher_PublishesSelectedKinds(t *testing.T) {
	conn := &fakeConn{}
	p := NewPublisher(conn, "fruitsort.events", "run-7")

	ctx, cancel := context.WithCancel(context.Background())
	go p.Run(ctx)

	p.Observe(controller.Event{Kind: controller.EventDetection, Fruit: core.FruitApple})
	p.Observe(controller.Event{Kind: controller.EventDeposit, At: 1500 * time.Millisecond, Stage: 1, Fruit: core.FruitApple, Bin: core.BinGreen1})
	p.Observe(controller.Event{Kind: controller.EventHalted, Stage: 3, Reason: "all stages complete"})

	require.Eventually(t, func() bool { return len(conn.messages()) == 2 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, p.Close())
	require.True(t, conn.drained)

	msgs := conn.messages()
	require.Equal(t, "fruitsort.events.deposit", msgs[0].subject)
	require.Equal(t, "fruitsort.events.halted", msgs[1].subject)

	var m Message
	require.NoError(t, json.Unmarshal(msgs[0].data, &m))
	require.Equal(t, "run-7", m.RunID)
	require.Equal(t, "Apple", m.Fruit)
	require.Equal(t, "bin_green1", m.Bin)
	require.InDelta(t, 1.5, m.SimTime, 1e-9)
}

func TestPublisher_DropsWhenFull(t *testing.T) {
	conn := &fakeConn{}
	p := NewPublisher(conn, "s", "run")

	for i := 0; i < queueSize+5; i++ {
		p.Observe(controller.Event{Kind: controller.EventDelayArmed})
	}
	require.Equal(t, 5, p.Dropped())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.Run(ctx)
	require.Len(t, conn.messages(), queueSize)
}
