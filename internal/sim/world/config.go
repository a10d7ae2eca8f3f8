package world

type WorldConfig struct {
	ID string

	// Channel capacities. Bounded so one slow producer cannot grow the
	// process without limit; the loop itself drains in arrival order.
	InboxSize   int
	JoinSize    int
	LeaveSize   int
	ControlSize int

	// Per-client outbound queue capacity. Events for a client whose queue
	// is full are dropped, never allowed to stall the world loop.
	ClientQueueSize int

	// Timeout in milliseconds for calls to the ownership oracle.
	OracleTimeoutMs int
}

func (c *WorldConfig) applyDefaults() {
	if c.ID == "" {
		c.ID = "world_1"
	}
	if c.InboxSize <= 0 {
		c.InboxSize = 1024
	}
	if c.JoinSize <= 0 {
		c.JoinSize = 64
	}
	if c.LeaveSize <= 0 {
		c.LeaveSize = 64
	}
	if c.ControlSize <= 0 {
		c.ControlSize = 64
	}
	if c.ClientQueueSize <= 0 {
		c.ClientQueueSize = 256
	}
	if c.OracleTimeoutMs <= 0 {
		c.OracleTimeoutMs = 2000
	}
}
