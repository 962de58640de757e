// Package gateflow implements a human-in-the-loop approval gate for
// long-running operations.
//
// An operation handler returns a tagged outcome: approved, rejected or
// pending.  A pending outcome pauses the invocation and opens a checkpoint
// identified by an approval ID; a human (or an automated reviewer) later
// decides the checkpoint and the engine resumes the handler with the
// decision attached.  The decision is authoritative - the handler never
// re-evaluates the condition that caused the pause.
//
// Gateflow is designed to be embedded in host applications.  End-users
// typically interact with the engine via the high-level Service façade
// exposed by the root package:
//
//	srv := gateflow.New()
//	rt := srv.Runtime()
//	rt.Start(ctx)
//	inv, wait, _ := rt.Submit(ctx, "shipping", "placeOrder", input, "")
//	out, _ := wait(ctx, time.Minute)
//	if out.State == invocation.StatePaused {
//		checkpoint, _ := rt.Detect(ctx, inv.ID)
//		rt.Resume(ctx, inv.ID, checkpoint.ID, true, "", "reviewer", time.Minute)
//	}
//
// For more details see the README and individual sub-packages.
package gateflow
