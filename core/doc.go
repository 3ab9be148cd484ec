// Package core defines the canonical streaming contract shared by every
// provider adapter, and the engine that drives multi-turn tool use on top of it.
//
// # Events
//
// Every backend, whatever its wire format, is normalized into a single ordered
// sequence of [StreamEvent] values: text, thinking, thinking_done, planning,
// tool_call_start, tool_call_update and a terminal done. Consumers render from
// this sequence only.
//
// # Engine
//
// [Engine.Stream] resolves a [Provider] for the requested model, streams one
// turn, executes any requested tools concurrently through a [ToolExecutor],
// appends their compacted results to the transcript and re-invokes the same
// provider until the model stops asking for tools or the iteration bound is
// reached:
//
//	engine := core.NewEngine(router, registry,
//	    core.WithMaxIterations(5),
//	    core.WithToolTimeout(15*time.Second),
//	)
//	for ev, err := range engine.Stream(ctx, core.ChatRequest{Model: "gemini-2.5-flash", Prompt: "hi"}) {
//	    if err != nil {
//	        if core.IsAbort(err) {
//	            return
//	        }
//	        fmt.Println(core.FallbackMessage)
//	        return
//	    }
//	    render(ev)
//	}
//
// The sequence is pull-based: the producer only advances while the consumer is
// ranging over it. Cancelling the context ends the sequence with [ErrAborted].
//
// # Credentials
//
// [KeyRotator] spreads requests across an ordered credential list and
// [RetryPolicy] retries rate-limited calls on the next credential and transient
// network failures on the same one.
package core
