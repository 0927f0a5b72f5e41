// Package transcription turns an audio artifact into text.
//
// An Engine is a loaded model that transcribes one file at a time. A Loader
// produces engines for a model selector; backends live in subpackages:
//
//   - transcription/whisper: faster-whisper HTTP sidecar
//   - transcription/whispercpp: whisper.cpp CLI with ggml model download
//
// Cache holds at most one engine per selector for the life of the process.
// Concurrent requests for a selector that is still loading wait for that
// load; requests for other selectors proceed independently. Invoker wraps a
// single engine call and maps any failure onto TRANSCRIPTION_FAILED.
//
// # Usage
//
//	cache := transcription.NewCache(whisper.NewLoader(cfg))
//	engine, err := cache.Get(ctx, source.Base)
//	transcript, err := transcription.NewInvoker(transcription.Config{}).Transcribe(ctx, path, engine)
package transcription
