// Package minio provides a blobstore.Store backed by the MinIO client.
//
// It works with MinIO and any other S3-compatible service (Ceph, Garage,
// SeaweedFS) and is the usual home for fingerprint sidecars and index
// snapshots of an archive that lives in object storage.
//
// # Basic Usage
//
//	store, err := minio.New(minio.Config{
//	    Endpoint:  "localhost:9000",
//	    AccessKey: "minioadmin",
//	    SecretKey: "minioadmin",
//	    Bucket:    "archive",
//	    Prefix:    "prints/",
//	})
//
// An existing client can be wrapped with NewStore.
package minio
