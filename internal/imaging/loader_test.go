package imaging

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// createTestImage creates a simple test image file and returns its path.
// The caller is responsible for removing the file.
func createTestImage(t *testing.T, width, height int, c color.Color) string {
	t.Helper()
	img := createInMemoryImage(width, height, c)

	tmpFile, err := os.CreateTemp("", "test-image-*.png")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer tmpFile.Close()

	if err := png.Encode(tmpFile, img); err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to encode image: %v", err)
	}

	return tmpFile.Name()
}

// createInMemoryImage creates an NRGBA image filled with one color.
func createInMemoryImage(width, height int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestNewImageCache(t *testing.T) {
	cache := NewImageCache()
	if cache == nil {
		t.Fatal("NewImageCache returned nil")
	}
	if cache.images == nil {
		t.Fatal("cache.images map is nil")
	}
}

func TestImageCache_Load(t *testing.T) {
	path := createTestImage(t, 100, 50, color.RGBA{255, 0, 0, 255})
	defer os.Remove(path)

	cache := NewImageCache()
	img, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 50 {
		t.Errorf("unexpected dimensions: %v", img.Bounds())
	}
	if got := img.NRGBAAt(10, 10); got != (color.NRGBA{255, 0, 0, 255}) {
		t.Errorf("pixel: got %v, want red", got)
	}
}

func TestImageCache_LoadReturnsCached(t *testing.T) {
	path := createTestImage(t, 10, 10, color.White)
	defer os.Remove(path)

	cache := NewImageCache()
	first, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Remove the file; the cached copy must still be served.
	os.Remove(path)
	second, err := cache.Load(path)
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if first != second {
		t.Error("second Load should return the cached image")
	}
}

func TestImageCache_LoadErrors(t *testing.T) {
	cache := NewImageCache()

	if _, err := cache.Load("/nonexistent/path/image.png"); err == nil {
		t.Error("expected error for missing file")
	}

	tmp := filepath.Join(t.TempDir(), "not-an-image.png")
	if err := os.WriteFile(tmp, []byte("plain text"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.Load(tmp); err == nil {
		t.Error("expected error for invalid image data")
	}
}

func TestImageCache_EvictAndClear(t *testing.T) {
	path1 := createTestImage(t, 10, 10, color.White)
	path2 := createTestImage(t, 10, 10, color.Black)
	defer os.Remove(path1)
	defer os.Remove(path2)

	cache := NewImageCache()
	cache.Load(path1)
	cache.Load(path2)
	if cache.Len() != 2 {
		t.Fatalf("Len: got %d, want 2", cache.Len())
	}

	cache.Evict(path1)
	if cache.Len() != 1 {
		t.Errorf("Len after Evict: got %d, want 1", cache.Len())
	}
	cache.Evict("/never/loaded.png")

	cache.Clear()
	if cache.Len() != 0 {
		t.Errorf("Len after Clear: got %d, want 0", cache.Len())
	}
}

func TestImageCache_Concurrent(t *testing.T) {
	path := createTestImage(t, 50, 50, color.White)
	defer os.Remove(path)

	cache := NewImageCache()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Load(path); err != nil {
				t.Errorf("concurrent Load failed: %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestLoadImageInfo(t *testing.T) {
	path := createTestImage(t, 120, 80, color.RGBA{0, 128, 0, 255})
	defer os.Remove(path)

	info, err := LoadImageInfo(NewImageCache(), path)
	if err != nil {
		t.Fatalf("LoadImageInfo failed: %v", err)
	}

	if info.Width != 120 || info.Height != 80 {
		t.Errorf("dimensions: got %dx%d, want 120x80", info.Width, info.Height)
	}
	if info.Format != "png" {
		t.Errorf("Format: got %s, want png", info.Format)
	}
	if info.FileSizeBytes <= 0 {
		t.Errorf("FileSizeBytes should be positive, got %d", info.FileSizeBytes)
	}
	if !info.Opaque {
		t.Error("opaque image reported as transparent")
	}
}
