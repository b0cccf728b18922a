// Package blob stores account profile photos in an S3-compatible bucket.
package blob
