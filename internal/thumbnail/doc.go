// Package thumbnail derives bounded JPEG thumbnails from untrusted uploads.
//
// A worker receives a Payload with two capability URLs: one to read the
// original and one to write the derivative. The pipeline is
//
//	fetch -> sniff -> header check -> decode -> fit 256x256 -> JPEG q82 -> PUT
//
// and every failure branch yields an Outcome with a distinguishable reason:
// "bad_content:<kind>", "unidentified_image", "http_error: ..." or
// "unexpected_error: ...". Task maps content failures to cancelled jobs and
// lets the queue retry the rest.
package thumbnail
