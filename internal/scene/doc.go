// Package scene is an in-memory host document for hit resolution.
//
// A scene is a tree of axis-aligned boxes under an implicit "body" root,
// optionally painted with a raster (src) or a CSS background image. It
// implements every host interface package hittest needs, plus the class list
// used by package dispatch, so the whole pipeline can run without a browser.
//
// Scenes are usually loaded from YAML:
//
//	width: 200
//	height: 200
//	elements:
//	  - id: images
//	    box: {x: 0, y: 0, width: 200, height: 200}
//	    children:
//	      - id: frame
//	        tag: img
//	        class: [image]
//	        src: frame.png
//	        box: {x: 20, y: 20, width: 100, height: 100}
//	      - id: badge
//	        class: [image]
//	        background: "url('badge.png')"
//	        background_position: "4px 0px"
//	        box: {x: 60, y: 60, width: 40, height: 40}
//
// Selectors support comma-separated compounds of tag, #id and .class terms.
package scene
