// Package s3 plugs Amazon S3 (or any S3-compatible store) into the pipeline:
// Source lists a bucket page by page and HeaderSetter rewrites the HTTP
// headers and user metadata of each listed object in place.
package s3
