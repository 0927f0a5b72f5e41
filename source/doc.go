// Package source models a transcription request and classifies its media
// reference into a known provider family, a generic HTTP URL, or a local
// file. Classification is pure string inspection: it never touches the
// network or the filesystem.
package source
