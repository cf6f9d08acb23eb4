package hittest

import (
	"context"
	"image"
	"testing"
)

func TestBuildRegistry_Order(t *testing.T) {
	host := newFakeHost()
	host.query = []ElementID{"a", "b", "c"}
	for _, id := range host.query {
		host.geometry[id] = Geometry{Width: 10, Height: 10, BackgroundImage: "none"}
	}

	reg, err := BuildRegistry(context.Background(), host, "root", "img")
	if err != nil {
		t.Fatalf("BuildRegistry failed: %v", err)
	}

	images := reg.Images()
	if len(images) != 3 || reg.Len() != 3 {
		t.Fatalf("got %d images, want 3", len(images))
	}
	for i, want := range []ElementID{"c", "b", "a"} {
		if images[i].Element != want {
			t.Errorf("images[%d] = %s, want %s", i, images[i].Element, want)
		}
	}
}

func TestRegistry_RegisterTwiceKeepsOne(t *testing.T) {
	host := newFakeHost()
	host.geometry["a"] = Geometry{Width: 1, Height: 1}
	ctx := context.Background()

	reg := NewRegistry()
	d1, _ := reg.Register(ctx, host, "a")
	d2, _ := reg.Register(ctx, host, "a")

	if d1 != d2 || reg.Len() != 1 {
		t.Errorf("duplicate registration: same=%v len=%d", d1 == d2, reg.Len())
	}
}

func TestRegistry_KindDetection(t *testing.T) {
	tests := []struct {
		name       string
		background string
		wantKind   Kind
		wantSource string
	}{
		{"no background", "none", RasterImage, ""},
		{"empty", "", RasterImage, ""},
		{"gradient", "linear-gradient(red, blue)", RasterImage, ""},
		{"url", `url("http://x.test/a.png")`, BackgroundImage, "http://x.test/a.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := newFakeHost()
			host.geometry["e"] = Geometry{
				Width: 4, Height: 3, Offset: image.Pt(7, 8),
				BackgroundImage: tt.background, BackgroundPosition: "2px 1px",
			}

			d, err := NewRegistry().Register(context.Background(), host, "e")
			if err != nil {
				t.Fatalf("Register failed: %v", err)
			}
			if d.Kind != tt.wantKind || d.Source != tt.wantSource {
				t.Errorf("got %v %q, want %v %q", d.Kind, d.Source, tt.wantKind, tt.wantSource)
			}
			if d.Box() != image.Rect(7, 8, 11, 11) {
				t.Errorf("Box: got %v", d.Box())
			}
			if d.BackgroundPosition != image.Pt(2, 1) {
				t.Errorf("BackgroundPosition: got %v", d.BackgroundPosition)
			}
		})
	}
}

func TestRegistry_Lookup(t *testing.T) {
	host := newFakeHost()
	host.geometry["a"] = Geometry{Width: 1, Height: 1}
	reg := NewRegistry()
	d, _ := reg.Register(context.Background(), host, "a")

	if got, ok := reg.Lookup("a"); !ok || got != d {
		t.Error("Lookup did not return the registered descriptor")
	}
	if _, ok := reg.Lookup("b"); ok {
		t.Error("Lookup found an unregistered element")
	}
}

func TestRegistry_Refresh(t *testing.T) {
	ctx := context.Background()
	before := Geometry{Width: 10, Height: 10, Offset: image.Pt(0, 0), BackgroundPosition: "0px 0px"}
	after := Geometry{Width: 20, Height: 30, Offset: image.Pt(5, 6), BackgroundPosition: "3px 4px"}

	tests := []struct {
		name    string
		dynamic DynamicProperties
		want    ImageDescriptor
	}{
		{"none", DynamicProperties{}, ImageDescriptor{Width: 10, Height: 10}},
		{"width", DynamicProperties{Width: true}, ImageDescriptor{Width: 20, Height: 10}},
		{"height", DynamicProperties{Height: true}, ImageDescriptor{Width: 10, Height: 30}},
		{"position", DynamicProperties{Position: true}, ImageDescriptor{Width: 10, Height: 10, Offset: image.Pt(5, 6)}},
		{"background", DynamicProperties{BackgroundPosition: true}, ImageDescriptor{Width: 10, Height: 10, BackgroundPosition: image.Pt(3, 4)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := newFakeHost()
			host.geometry["a"] = before
			reg := NewRegistry()
			d, _ := reg.Register(ctx, host, "a")

			host.geometry["a"] = after
			reads := host.geomReads
			if err := reg.Refresh(ctx, host, d, tt.dynamic); err != nil {
				t.Fatalf("Refresh failed: %v", err)
			}

			got := *d
			got.Element, got.Kind, got.Source = "", 0, ""
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
			if !tt.dynamic.Any() && host.geomReads != reads {
				t.Error("Refresh read geometry with no dynamic properties")
			}
		})
	}
}
