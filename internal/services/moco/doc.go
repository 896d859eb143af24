// Package moco wraps the MocoVoice transcription REST API. It exposes the
// five calls a transcription run needs (create job, upload audio, start,
// poll status, fetch result) behind a retrying HTTP client with linear
// backoff and the shared services error taxonomy.
package moco
