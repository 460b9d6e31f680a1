// Package subtitle converts between timed transcription segments and SubRip
// (.srt) documents.
//
// Timecodes are rendered as HH:MM:SS,mmm with truncated milliseconds. The
// writer numbers blocks by position; the parser is tolerant of structurally
// short blocks but rejects malformed timecodes.
package subtitle
