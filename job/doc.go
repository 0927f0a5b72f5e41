// Package job runs one transcription request end to end.
//
// A job moves through validating, acquiring and transcribing and ends in
// completed or failed. Each job owns one workspace, and the workspace is
// gone from disk before RunJob returns, whatever the outcome. Malformed
// requests fail during validation without touching the network or the
// filesystem.
//
//	orch := job.New(job.Config{}, workspaces, chain, cache)
//	outcome := orch.RunJob(ctx, source.Request{Source: url}, sink)
//	fmt.Println(outcome.Result().Transcript)
package job
