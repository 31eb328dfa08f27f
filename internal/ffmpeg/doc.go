// Package ffmpeg wraps the external FFmpeg binary used to concatenate
// clips into a single output file.
//
// Concatenation goes through FFmpeg's concat demuxer with a temporary
// manifest listing the inputs by absolute path. Video streams are copied
// byte-for-byte; only the audio stream is transcoded to AAC so outputs
// assembled from heterogeneous source containers stay playable.
package ffmpeg
