// Package workspace manages the ephemeral per-job directory every artifact of
// a job is written to. A Workspace is released exactly once on every exit
// path; release failures are logged as cleanup warnings and never returned.
//
//	ws, err := manager.Create(jobID)
//	if err != nil {
//	    return err
//	}
//	defer ws.Release()
//
//	cp := ws.Checkpoint()
//	if err := tryAdapter(ws); err != nil {
//	    ws.Rollback(cp) // sweep partial files before the next attempt
//	}
package workspace
