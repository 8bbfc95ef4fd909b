// Package audit carries security events from the engine to a pluggable Sink.
//
// Events are queued on a bounded channel and delivered by one worker. When the
// queue is full the dispatcher either drops the event (counting it) or makes
// the caller wait, depending on Config.DropIfFull. Which events exist and
// when they fire is decided by the engine, not here.
package audit
