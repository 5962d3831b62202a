package notify

// Event types emitted by the engine. Configure ARBBOT_NOTIFY_EVENTS with a
// subset of these to filter alerts.
const (
	EventTradeExecuted       = "trade_executed"
	EventPanicUnwind         = "panic_unwind"
	EventPositionOpened      = "position_opened"
	EventPositionClosed      = "position_closed"
	EventPersistFailed       = "persist_failed"
	EventShutdownLiquidation = "shutdown_liquidation"
)
