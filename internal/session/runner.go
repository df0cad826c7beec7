package session

import "context"

// Run drives the countdown and autosave tickers until ctx is cancelled or
// the session completes or is closed. Both tickers are stopped before Run returns, so a
// torn-down session never receives further callbacks.
func (c *Controller) Run(ctx context.Context) error {
	tick := c.clk.NewTicker(c.opts.TickInterval)
	defer tick.Stop()
	save := c.clk.NewTicker(c.opts.AutosaveInterval)
	defer save.Stop()

	c.log.Debug().Msg("Session runner started")
	defer c.log.Debug().Msg("Session runner stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		case <-c.closed:
			return nil
		case <-tick.C():
			c.Tick(ctx)
		case <-save.C():
			if err := c.Autosave(ctx); err != nil {
				c.log.Warn().Err(err).Msg("Autosave failed")
			}
		}
	}
}
