// Package s3 provides an Amazon S3 implementation of blobstore.Store.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("archive/"),
//	    s3.WithRegion("eu-central-1"),
//	)
//
//	handler := fingerprint.NewHandler(store, fingerprint.WithGenerator(gen))
//
// # Features
//
//   - Range reads for partial sidecar fetches
//   - Multipart uploads for large index snapshots
//   - CRC32C checksums on every upload
//   - Automatic pagination for listing
package s3
