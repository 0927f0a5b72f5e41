// Package audio turns an acquired media file into transcription-ready audio.
//
// Normalizer converts any container ffmpeg can read into 16 kHz mono
// 16-bit PCM WAV inside the job workspace, replacing the acquired file so a
// single artifact stays active. Probe reads a WAV header and rejects files
// that carry no samples before they reach an engine.
package audio
