// Package storage defines the Backend capability interface for byte storage
// confined to a root, the three storage classes files live in, and the
// component that builds one backend per class at startup.
//
// # Backends
//
//   - storage/local: local filesystem rooted at a configured directory
//
// Remote providers (s3, azure) are configuration placeholders only and fail
// validation until an implementation of Backend exists for them.
//
// # Configuration
//
//	storage:
//	  provider: "local"
//	  hash_algorithm: "sha256"
//	  max_file_size: 104857600
//	  public:
//	    path: "/data/public"
//	  private:
//	    path: "/data/private"
//	  temp:
//	    path: "/data/temp"
//
// # Class dispatch
//
// A Set holds the three backends and resolves a Class to its backend with
// For. There is no runtime lookup beyond that switch.
package storage
