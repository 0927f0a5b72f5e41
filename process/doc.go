// Package process runs the external tools mediascribe drives (yt-dlp, ffmpeg,
// whisper.cpp) with output capture, line callbacks for progress parsing, and
// graceful process-group termination on cancellation.
package process
