/*
Package filesystem wraps os.Stat and os.Open with retries for stale file
handle errors.

# Purpose

The blob root is commonly an NFS mount. After a server-side change or a
network hiccup, NFS returns ESTALE for a file that is still there and opens
fine a moment later. The blob store reads media and preview files through
this package so such a hiccup costs a short delay instead of a failed
download or preview job.

# Usage

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())

	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
	    return err
	}
	defer f.Close()

# Retry Behavior

Defaults:
  - MaxRetries: 3
  - InitialBackoff: 50ms, doubling per retry
  - MaxBackoff: 500ms

Only ESTALE is retried. Every other error, including "not exist", is
returned from the first attempt unchanged so errors.Is checks keep working.

Stale handles, retries and exhausted retries are counted in the
movies_db_filesystem_* metrics.
*/
package filesystem
