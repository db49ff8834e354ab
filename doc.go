// Package xcorrsound locates short audio snippets inside a large archive of
// fingerprinted recordings.
//
// Every recording is a sequence of 32-bit fingerprints, one per 11.62 ms of
// audio. Fingerprints are collapsed to 16 bits and indexed per chunk of a
// recording: a chunk is a fixed-length window plus an overlap tail shared
// with the next chunk. A query collapses the snippet the same way, counts
// matching values per chunk and returns the best chunks as Hits. Candidates
// can then be refined with a sliding Hamming comparison on both the collapsed
// and the raw fingerprints, which yields a precise offset and a score.
//
// # Quick Start
//
//	ctx := context.Background()
//	prints := fingerprint.NewHandler(blobstore.NewLocalStore("/archive"),
//	    fingerprint.WithGenerator(myAnalyser))
//
//	d, _ := xcorrsound.New()
//	_ = d.AddRecording(ctx, xcorrsound.NewSourceRecording("p3_1400.mp3", prints))
//
//	hits, _ := d.FindCandidates(ctx, xcorrsound.NewSourceRecording("snippet.wav", prints), 10)
//	for _, h := range hits {
//	    fmt.Println(h)
//	}
//
// # Chunked Search
//
// Long snippets are split into sub-chunks that are searched separately.
// Every candidate of a sub-chunk is refined and the lists are ranked by raw
// score:
//
//	lists, _ := d.FindCandidatesChunked(ctx, snippet, xcorrsound.ChunkedQuery{
//	    TopX:         5,
//	    ChunkLength:  1000,
//	    ChunkOverlap: 200,
//	})
//
// # Archives
//
// An Archive searches several independent Discovery shards in parallel,
// bounded by a worker pool and a per-search timeout. A failing or slow shard
// is reported in the result and never aborts the other shards.
//
// # Persistence
//
// Save writes the posting index and a manifest of the recordings to a
// blobstore.Store; Load restores them. The stores in blobstore, blobstore/minio
// and blobstore/s3 can hold both the snapshots and the fingerprint sidecars.
//
// # Concurrency
//
// A Discovery may be searched from many goroutines. AddRecording takes an
// exclusive lock because growing the posting bitmaps reallocates all of them.
package xcorrsound
