// Package hittest resolves which of several overlapping, possibly transparent
// images is really under a point.
//
// A native hit test reports the top-most element at a point regardless of
// whether that element's pixels are transparent there. Resolver corrects
// that: it samples the reported candidate's alpha at the point and, while the
// pixel is transparent, hides the candidate and asks the host again, until an
// opaque image or a non-image element is reached.
//
// The package is host-agnostic. A document is reached only through the small
// interfaces in types.go; package scene provides an in-memory document and
// package browser drives a real page.
//
// # Components
//
//   - Registry: the ordered catalogue of candidate images (ImageDescriptor),
//     most recently registered first, looked up by ElementID.
//   - Sampler: draws one image into a shared offscreen surface and reads back
//     the alpha at one point.
//   - Probe: the host's "element at point", with scoped hiding of a set of
//     elements (or their containment groups).
//   - Resolver: the peeling loop producing a Verdict.
//
// # Concurrency
//
// A Resolver owns one sampling surface and is meant to be driven by a single
// event loop. Concurrent Resolve calls on the same Resolver are not supported;
// overlapping samples fail with ErrSamplerBusy rather than corrupt each other.
package hittest
