package pipeline

import (
	"errors"
	"testing"
)

func TestResolveIdentityWithoutConstraints(t *testing.T) {
	got, err := Resolve(Dimensions{Width: 640, Height: 480}, nil, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != (Dimensions{Width: 640, Height: 480}) {
		t.Fatalf("expected identity, got %s", got)
	}

	got, err = Resolve(Dimensions{Width: 640, Height: 480}, &ResizeSpec{}, nil)
	if err != nil {
		t.Fatalf("resolve empty resize: %v", err)
	}
	if got != (Dimensions{Width: 640, Height: 480}) {
		t.Fatalf("expected identity for empty resize, got %s", got)
	}
}

func TestResolveResizeSpecs(t *testing.T) {
	original := Dimensions{Width: 1000, Height: 500}

	tests := []struct {
		name   string
		resize *ResizeSpec
		want   Dimensions
	}{
		{name: "uniform", resize: Uniform(300), want: Dimensions{Width: 300, Height: 300}},
		{name: "exact distorts", resize: Exact(100, 700), want: Dimensions{Width: 100, Height: 700}},
		{name: "width only", resize: WidthOnly(333), want: Dimensions{Width: 333, Height: 166}},
		{name: "height only", resize: HeightOnly(300), want: Dimensions{Width: 600, Height: 300}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(original, tt.resize, nil)
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestResolvePartialWidthKeepsRatio(t *testing.T) {
	for ow := 1; ow <= 60; ow += 7 {
		for oh := 1; oh <= 60; oh += 5 {
			for w := 1; w <= 90; w += 11 {
				got, err := Resolve(Dimensions{Width: ow, Height: oh}, WidthOnly(w), nil)
				if oh*w/ow < 1 {
					if !errors.Is(err, ErrInvalidDimensions) {
						t.Fatalf("%dx%d -> w=%d: expected invalid dimensions, got %v", ow, oh, w, err)
					}
					continue
				}
				if err != nil {
					t.Fatalf("%dx%d -> w=%d: %v", ow, oh, w, err)
				}
				if got.Width != w || got.Height != oh*w/ow {
					t.Fatalf("%dx%d -> w=%d: got %s", ow, oh, w, got)
				}

				// 0 <= oh*w/ow - h < 1, kept in integers.
				diff := int64(oh)*int64(w) - int64(got.Height)*int64(ow)
				if diff < 0 || diff >= int64(ow) {
					t.Fatalf("%dx%d -> %s: height is not the floored proportional value", ow, oh, got)
				}
			}
		}
	}
}

func TestResolveBoxDoesNotUpscale(t *testing.T) {
	box := Square(1024)
	for _, original := range []Dimensions{{1, 1}, {500, 500}, {1024, 1024}, {1024, 10}, {3, 1024}} {
		got, err := Resolve(original, nil, box)
		if err != nil {
			t.Fatalf("resolve %s: %v", original, err)
		}
		if got != original {
			t.Fatalf("expected %s unchanged, got %s", original, got)
		}
	}
}

func TestResolveWidthClamp(t *testing.T) {
	box := &BoundingBox{Width: 800, Height: 600}
	for _, original := range []Dimensions{{801, 100}, {1600, 1200}, {4000, 2000}, {1000, 750}} {
		got, err := Resolve(original, nil, box)
		if err != nil {
			t.Fatalf("resolve %s: %v", original, err)
		}
		if got.Width != box.Width {
			t.Fatalf("%s: expected width %d, got %s", original, box.Width, got)
		}
		if got.Height > box.Height {
			t.Fatalf("%s: height exceeds box, got %s", original, got)
		}
	}
}

func TestResolveClampsSequentially(t *testing.T) {
	got, err := Resolve(Dimensions{Width: 2000, Height: 3000}, nil, Square(1024))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	// Width pass: 1024x1536. Height pass on that: floor(1024*1024/1536)=682.
	if got != (Dimensions{Width: 682, Height: 1024}) {
		t.Fatalf("expected 682x1024, got %s", got)
	}

	got, err = Resolve(Dimensions{Width: 3000, Height: 2000}, nil, Square(1024))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != (Dimensions{Width: 1024, Height: 682}) {
		t.Fatalf("expected 1024x682, got %s", got)
	}
}

func TestResolveResizeThenClamp(t *testing.T) {
	got, err := Resolve(Dimensions{Width: 1000, Height: 500}, Exact(2000, 400), &BoundingBox{Width: 1000, Height: 1000})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != (Dimensions{Width: 1000, Height: 200}) {
		t.Fatalf("expected 1000x200, got %s", got)
	}
}

func TestResolveUnknownOriginal(t *testing.T) {
	if _, err := Resolve(Dimensions{}, WidthOnly(100), nil); !errors.Is(err, ErrDimensionsUnavailable) {
		t.Fatalf("expected dimensions unavailable, got %v", err)
	}
	if _, err := Resolve(Dimensions{Width: 10}, nil, Square(100)); !errors.Is(err, ErrDimensionsUnavailable) {
		t.Fatalf("expected dimensions unavailable for box, got %v", err)
	}

	got, err := Resolve(Dimensions{}, Exact(40, 30), nil)
	if err != nil {
		t.Fatalf("explicit size needs no original: %v", err)
	}
	if got != (Dimensions{Width: 40, Height: 30}) {
		t.Fatalf("expected 40x30, got %s", got)
	}
}

func TestResolveRejectsInvalidInput(t *testing.T) {
	if _, err := Resolve(Dimensions{Width: 10, Height: 10}, Exact(-1, 5), nil); !errors.Is(err, ErrInvalidDimensions) {
		t.Fatalf("expected invalid dimensions for negative resize, got %v", err)
	}
	if _, err := Resolve(Dimensions{Width: 10, Height: 10}, nil, &BoundingBox{Width: 0, Height: 5}); !errors.Is(err, ErrInvalidDimensions) {
		t.Fatalf("expected invalid dimensions for empty box, got %v", err)
	}
	if _, err := Resolve(Dimensions{Width: 1000, Height: 1}, nil, Square(10)); !errors.Is(err, ErrInvalidDimensions) {
		t.Fatalf("expected invalid dimensions when clamp floors to zero, got %v", err)
	}
}
