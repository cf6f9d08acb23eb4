// Package imaging provides the raster plumbing behind hit resolution.
//
// It covers decoding and caching image sources, the reusable offscreen Surface
// the alpha sampler draws into, parsing of computed CSS background values, and
// the helpers used to show a scene to a human: colour sampling, compositing,
// grid overlays and cropping.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with (0,0) at the top-left corner, X
// increasing rightward and Y increasing downward. Rectangles follow the
// image.Rectangle convention: Min is inclusive, Max is exclusive.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. Surface is not: it owns one mutable
// pixel buffer and must be used by a single sampler at a time.
//
// # Alpha
//
// Alpha values are reported non-premultiplied on a 0-255 scale. AlphaPercent
// converts them to the whole-percent scale used by opacity thresholds.
package imaging
