// Package ytdlp is the generic fallback acquisition adapter. It drives the
// yt-dlp CLI, which supports most video hosts, in two steps: a metadata probe
// that rejects playlists, live streams and restricted media before any
// download, then an audio extraction into "audio.<ext>" in the workspace.
package ytdlp
