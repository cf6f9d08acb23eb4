package imaging

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// createTestImage writes a solid-colour PNG into a temp dir and returns its path.
func createTestImage(t *testing.T, width, height int, c color.Color) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test-image.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, createInMemoryImage(width, height, c)); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

func TestNewImageCache(t *testing.T) {
	cache := NewImageCache()
	if cache == nil {
		t.Fatal("NewImageCache returned nil")
	}
	if cache.Len() != 0 {
		t.Fatalf("new cache holds %d images, want 0", cache.Len())
	}
}

func TestImageCache_Load(t *testing.T) {
	cache := NewImageCache()
	imgPath := createTestImage(t, 100, 100, color.RGBA{255, 0, 0, 255})

	img1, err := cache.Load(imgPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	bounds := img1.Bounds()
	if bounds.Dx() != 100 || bounds.Dy() != 100 {
		t.Errorf("unexpected dimensions: got %dx%d, want 100x100", bounds.Dx(), bounds.Dy())
	}

	// Second load should return cached image
	img2, err := cache.Load(imgPath)
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if img1 != img2 {
		t.Error("second Load did not return cached image")
	}
}

func TestImageCache_Load_NonExistent(t *testing.T) {
	cache := NewImageCache()
	if _, err := cache.Load("/nonexistent/path/to/image.png"); err == nil {
		t.Error("Load should fail for non-existent file")
	}
}

func TestImageCache_Load_InvalidImage(t *testing.T) {
	cache := NewImageCache()

	path := filepath.Join(t.TempDir(), "invalid.png")
	if err := os.WriteFile(path, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	if _, err := cache.Load(path); err == nil {
		t.Error("Load should fail for invalid image data")
	}
	if cache.Len() != 0 {
		t.Error("failed decode must not be cached")
	}
}

func TestImageCache_LoadWith(t *testing.T) {
	cache := NewImageCache()
	imgPath := createTestImage(t, 4, 4, color.RGBA{0, 0, 255, 255})
	data, err := os.ReadFile(imgPath)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	calls := 0
	fetch := func() ([]byte, error) {
		calls++
		return data, nil
	}

	for i := 0; i < 3; i++ {
		if _, err := cache.LoadWith("https://example.test/a.png", fetch); err != nil {
			t.Fatalf("LoadWith failed: %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("fetch called %d times, want 1", calls)
	}
}

func TestImageCache_LoadWith_FetchError(t *testing.T) {
	cache := NewImageCache()
	boom := errors.New("boom")

	_, err := cache.LoadWith("k", func() ([]byte, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want wrapped boom", err)
	}
}

func TestImageCache_PutGet(t *testing.T) {
	cache := NewImageCache()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))

	cache.Put("sprite", img)
	got, ok := cache.Get("sprite")
	if !ok || got != img {
		t.Fatal("Get did not return the stored image")
	}

	// Load must not touch disk for a key that was Put.
	loaded, err := cache.Load("sprite")
	if err != nil || loaded != img {
		t.Fatalf("Load after Put: got %v, %v", loaded, err)
	}
}

func TestImageCache_ClearEvict(t *testing.T) {
	cache := NewImageCache()
	cache.Put("a", image.NewNRGBA(image.Rect(0, 0, 1, 1)))
	cache.Put("b", image.NewNRGBA(image.Rect(0, 0, 1, 1)))

	cache.Evict("a")
	if _, ok := cache.Get("a"); ok {
		t.Error("Evict did not remove image from cache")
	}
	cache.Evict("missing") // no-op

	cache.Clear()
	if cache.Len() != 0 {
		t.Errorf("Clear did not empty cache: %d images remain", cache.Len())
	}
}

func TestImageCache_ConcurrentAccess(t *testing.T) {
	cache := NewImageCache()
	imgPath := createTestImage(t, 50, 50, color.RGBA{128, 128, 128, 255})

	var wg sync.WaitGroup
	errs := make(chan error, 100)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Load(imgPath); err != nil {
				errs <- err
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Load error: %v", err)
	}
}
