// Package dispatch routes pointer and touch events through the hit resolver.
//
// Click and touchstart events run the image or non-image callback for the
// element really under the point. Mouse movement over an opaque image puts a
// hover class on the image's hover target and a cursor class on the body;
// leaving the images, or moving over a transparent area with nothing
// beneath, removes both. The first touch turns hover and cursor classes off
// for good.
package dispatch
