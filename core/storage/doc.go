// Package storage wraps the MinIO client behind the Client interface.
//
// Client holds only the calls the remote store makes: bucket checks, object
// upload and download, listings, stat, server-side copy and batch delete. It
// works against AWS S3 and self-hosted MinIO alike. core/storage/mocks holds a
// testify mock of it.
//
// NewClient configures a transport with dial, TLS and response header
// timeouts so an unreachable endpoint fails instead of hanging. IsNotFound
// recognises missing key and bucket responses, including wrapped ones.
//
//	client, err := storage.NewClient(cfg.Storage)
//	exists, err := client.BucketExists(ctx, cfg.Storage.Bucket)
package storage
