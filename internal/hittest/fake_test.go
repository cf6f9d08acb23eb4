package hittest

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"slices"
)

// fakeHost is a scriptable host for unit tests.
type fakeHost struct {
	geometry  map[ElementID]Geometry
	rasters   map[ElementID]image.Image
	sources   map[string]image.Image
	query     []ElementID
	at        func(p image.Point, hidden []ElementID) ElementID
	animating map[ElementID]bool
	closest   map[ElementID]ElementID
	hidden    []ElementID
	hideCalls [][]ElementID
	failHide  bool
	failShow  bool
	failAt    bool
	geomReads int

	// honorCtx makes SetHidden fail on a done ctx, like a remote host.
	honorCtx bool
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		geometry:  make(map[ElementID]Geometry),
		rasters:   make(map[ElementID]image.Image),
		sources:   make(map[string]image.Image),
		animating: make(map[ElementID]bool),
		closest:   make(map[ElementID]ElementID),
	}
}

func (f *fakeHost) Query(_ context.Context, _ ElementID, _ string) ([]ElementID, error) {
	return f.query, nil
}

func (f *fakeHost) Geometry(_ context.Context, id ElementID) (Geometry, error) {
	f.geomReads++
	g, ok := f.geometry[id]
	if !ok {
		return Geometry{}, fmt.Errorf("no geometry for %s", id)
	}
	return g, nil
}

func (f *fakeHost) RasterImage(_ context.Context, id ElementID) (image.Image, error) {
	img, ok := f.rasters[id]
	if !ok {
		return nil, fmt.Errorf("no raster for %s", id)
	}
	return img, nil
}

func (f *fakeHost) BackgroundImage(_ context.Context, src string) (image.Image, error) {
	img, ok := f.sources[src]
	if !ok {
		return nil, fmt.Errorf("no source %s", src)
	}
	return img, nil
}

func (f *fakeHost) ElementAt(_ context.Context, p image.Point) (ElementID, error) {
	if f.failAt {
		return "", errors.New("hit test failed")
	}
	return f.at(p, slices.Clone(f.hidden)), nil
}

func (f *fakeHost) SetHidden(ctx context.Context, ids []ElementID, hidden bool) error {
	if f.honorCtx && ctx.Err() != nil {
		return ctx.Err()
	}
	if hidden {
		f.hideCalls = append(f.hideCalls, slices.Clone(ids))
		if f.failHide {
			return errors.New("hide failed")
		}
		f.hidden = append(f.hidden, ids...)
		return nil
	}
	if f.failShow {
		return errors.New("show failed")
	}
	f.hidden = slices.DeleteFunc(f.hidden, func(id ElementID) bool { return slices.Contains(ids, id) })
	return nil
}

func (f *fakeHost) Animating(_ context.Context, id ElementID) (bool, error) {
	return f.animating[id], nil
}

func (f *fakeHost) Closest(_ context.Context, id ElementID, _ string) (ElementID, bool, error) {
	g, ok := f.closest[id]
	return g, ok, nil
}

func filled(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}
